package gpu

import "codeberg.org/mutker/sysfeed/internal/errors"

func powerUsage(device nvmlDevice) (Watts, error) {
	usage, ret := device.GetPowerUsage()
	if !IsNVMLSuccess(ret) {
		return 0, errors.New().Wrap(ErrPowerUsageFailed, newNVMLError(ret))
	}

	return Watts(float64(usage) / milliWattsToWatts), nil
}

func powerLimit(device nvmlDevice) (Watts, error) {
	limit, ret := device.GetPowerManagementLimit()
	if !IsNVMLSuccess(ret) {
		return 0, errors.New().Wrap(ErrPowerLimitFailed, newNVMLError(ret))
	}

	return Watts(float64(limit) / milliWattsToWatts), nil
}
