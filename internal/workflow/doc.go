// Package workflow builds the analysis workflow graph. The builder turns an
// analysis request, a contrast set, and the walker's discovered files into
// a directed acyclic graph of named nodes, each holding either an external
// FSL command or a small in-process action (design rendering, derivative
// sinks). The graph itself carries no execution policy; the engine walks it
// in topological order.
//
// Two builders exist, mirroring the two analysis levels:
//
//   - FirstLevel: per subject, SUSAN smoothing feeding a FEAT model with the
//     configured contrasts, followed by sinks that file the resulting stat
//     maps under the output directory with BIDS-derivatives names.
//
//   - GroupLevel: cope/varcope merging, OLS FLAMEO with a group-mean design,
//     then FWE and cluster thresholding of the group z-map in both signs.
//
// Nodes exchange small dynamic results (a captured median intensity, the
// smoothness estimates) through a shared Values store; everything else is
// wired by file path at build time.
package workflow
