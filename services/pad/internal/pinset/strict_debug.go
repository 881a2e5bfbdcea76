//go:build paddebug

package pinset

const strictIndex = true
