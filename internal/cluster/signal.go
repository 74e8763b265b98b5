package cluster

import "syscall"

// gracefulSignal is sent to a worker to request a drain-then-exit shutdown.
var gracefulSignal = syscall.SIGTERM
