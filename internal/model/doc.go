// Package model provides the Go struct representation of a single analysis
// run. Its core purpose is to capture everything the CLI resolves (dataset
// locations, analysis level, participant selection) as immutable,
// strongly-typed values that the walker, builder, and engine consume.
//
// The model is built around a few key structures:
//
//   - Request: The complete description of one invocation. Constructed once
//     from command-line input and never mutated afterwards.
//
//   - Contrast: A statistical comparison between task conditions, expressed
//     as condition labels and per-condition weights. Loaded from an HCL file
//     or taken from the compiled-in defaults.
//
//   - FileSet / SubjectData: The imaging files discovered for each subject
//     and session. These are read-only references; the underlying image data
//     is owned by fMRIPrep's output tree, never by this tool.
//
// Why a separate model package?
//
// The walker, the workflow builder, and the engine all need the same run
// description but must not depend on each other. Keeping the shared types
// here leaves the engine free of any knowledge of BIDS layout or HCL, and
// leaves the walker free of any knowledge of FSL.
package model
