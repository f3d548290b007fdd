// Package progress implements pipeline reporters: an interactive progress bar
// for terminals, a structured log reporter that samples progress by
// percentage bucket, and a fan-out that feeds several reporters at once.
package progress
