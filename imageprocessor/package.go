// Package imageprocessor decodes images, reduces them to grayscale keypoint
// signatures and scores how well two signatures match.
package imageprocessor
