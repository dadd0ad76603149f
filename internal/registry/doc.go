// Package registry looks up published crate versions on a crates.io
// compatible registry. Responses can be cached on disk for a configurable
// age so repeated invocations do not hit the network.
package registry
