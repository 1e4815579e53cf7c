package device

type GPUClass string

const (
	GPULow    GPUClass = "low"
	GPUMedium GPUClass = "medium"
	GPUHigh   GPUClass = "high"
)

type ConnectionClass string

const (
	Connection2G      ConnectionClass = "2g"
	Connection3G      ConnectionClass = "3g"
	Connection4G      ConnectionClass = "4g"
	ConnectionWifi    ConnectionClass = "wifi"
	ConnectionUnknown ConnectionClass = "unknown"
)

type Tier int

const (
	TierLow Tier = iota
	TierMid
	TierHigh
)

func (t Tier) String() string {
	switch t {
	case TierLow:
		return "low-end"
	case TierMid:
		return "mid-range"
	default:
		return "high-end"
	}
}

// Capabilities is a one-shot snapshot of the device and network the client
// is running on. Each field is best-effort; probes that cannot answer fall
// back to the conservative defaults in Defaults().
type Capabilities struct {
	RAMGigabytes float64         `json:"ram_gigabytes"`
	Cores        int             `json:"cores"`
	GPU          GPUClass        `json:"gpu"`
	Connection   ConnectionClass `json:"connection"`
	BatteryLevel float64         `json:"battery_level"`
	Charging     bool            `json:"charging"`
}

// Defaults returns the fallback snapshot for an uncharacterizable device.
// The fallbacks are deliberately asymmetric: an unknown device must not be
// optimized more aggressively than a known capable one.
func Defaults() Capabilities {
	return Capabilities{
		RAMGigabytes: 4,
		Cores:        4,
		GPU:          GPUMedium,
		Connection:   ConnectionUnknown,
		BatteryLevel: 1.0,
		Charging:     true,
	}
}

// Tier classifies the device for cache-budget and concurrency decisions.
func (c Capabilities) Tier() Tier {
	if c.RAMGigabytes < 2 || c.Connection == Connection2G || c.GPU == GPULow {
		return TierLow
	}
	if c.RAMGigabytes < 4 || c.Connection == Connection3G || c.GPU == GPUMedium {
		return TierMid
	}
	return TierHigh
}

func (c Capabilities) SlowConnection() bool {
	return c.Connection == Connection2G || c.Connection == Connection3G
}
