//go:build !linux

package output

const keysWarmup = 0
