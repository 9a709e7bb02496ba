// Package astro implements the birth-details lookup form: date and time of
// birth, a coordinate resolved from the device or picked on a map, and a
// calculation mode, submitted to a ChartService.
package astro
