// Package sim orchestrates experiments: it spawns a set of node engines
// in-process with chosen tick rates and communication probability, lets
// them run for a duration, then stops them and reports where the event
// logs landed. A catalog of canned experiments covers the standard
// clock-skew and message-rate sweeps; ad-hoc parameter sets load from
// YAML scenario files.
package sim
