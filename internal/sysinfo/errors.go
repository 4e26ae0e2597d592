package sysinfo

import "codeberg.org/mutker/sysfeed/internal/errors"

var errEmptyCPUTimes = errors.New().WithMessage(errors.ErrUnavailable, "no CPU time counters reported")
