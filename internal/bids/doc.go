// Package bids walks BIDS-organized directory trees. It is not a BIDS
// validator: it parses just enough of the filename entity convention
// (sub-*, ses-*, task-*, space-*, desc-*) to pair each subject's
// preprocessed BOLD series with its brain mask, confounds table, and task
// events file.
//
// A participant label that matches no subject directory produces no entries
// and no error. Whether an entirely empty result is fatal is decided by the
// caller, not here.
package bids
