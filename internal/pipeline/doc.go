// Package pipeline provides a framework for executing stage steps in sequence.
//
// The pipeline pattern is used to push NHANES data through the stages:
// index building, file download, transport-to-CSV conversion, grouping,
// schema checking, merging and classification. Each stage is implemented
// as a Step that receives the current run report and can modify it.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. It allows easy addition/removal of steps without modifying core logic
// 2. It provides consistent error handling and logging across steps
// 3. It supports cancellation via context for long-running downloads
// 4. It enables potential parallelization of independent steps in the future
//
// The pipeline supports both single runs and batch processing of multiple
// survey components with concurrency control using errgroup.
package pipeline
