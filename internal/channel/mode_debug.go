//go:build debug

package channel

const unbufferedOnly = true
