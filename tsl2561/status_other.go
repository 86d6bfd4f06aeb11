//go:build !linux

package tsl2561

import "syscall"

var dataNackErrnos = []error{syscall.EIO}
