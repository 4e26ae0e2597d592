package gpu

import "codeberg.org/mutker/sysfeed/internal/errors"

func fanCount(device nvmlDevice) (int, error) {
	count, ret := device.GetNumFans()
	if !IsNVMLSuccess(ret) {
		return 0, errors.New().Wrap(ErrFanCountFailed, newNVMLError(ret))
	}

	return count, nil
}

func fanSpeeds(device nvmlDevice, count int) ([]FanSpeed, error) {
	errFactory := errors.New()
	speeds := make([]FanSpeed, count)

	for i := 0; i < count; i++ {
		speed, ret := device.GetFanSpeed_v2(i)
		if !IsNVMLSuccess(ret) {
			return nil, errFactory.Wrap(ErrGetFanSpeedFailed, newNVMLError(ret))
		}
		speeds[i] = FanSpeed(speed)
	}

	return speeds, nil
}
