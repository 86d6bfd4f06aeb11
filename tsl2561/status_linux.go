package tsl2561

import "syscall"

// Most i2c-dev adapters report a data NACK as EREMOTEIO, older ones use EIO.
var dataNackErrnos = []error{syscall.EREMOTEIO, syscall.EIO}
