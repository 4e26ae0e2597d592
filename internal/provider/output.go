package provider

// Output is one immutable refresh result. Outputs serialize untagged: the
// kind is inferred by the consumer from the fields present.
type Output interface {
	Kind() Kind
}

type CPUOutput struct {
	Frequency         float64 `json:"frequency"`
	Usage             float64 `json:"usage"`
	LogicalCoreCount  int     `json:"logicalCoreCount"`
	PhysicalCoreCount int     `json:"physicalCoreCount"`
	Vendor            string  `json:"vendor"`
}

type MemoryOutput struct {
	Usage       float64 `json:"usage"`
	FreeMemory  uint64  `json:"freeMemory"`
	UsedMemory  uint64  `json:"usedMemory"`
	TotalMemory uint64  `json:"totalMemory"`
	FreeSwap    uint64  `json:"freeSwap"`
	UsedSwap    uint64  `json:"usedSwap"`
	TotalSwap   uint64  `json:"totalSwap"`
}

type DiskOutput struct {
	Disks []Disk `json:"disks"`
}

type Disk struct {
	Name           *string     `json:"name"`
	FileSystem     string      `json:"fileSystem"`
	MountPoint     string      `json:"mountPoint"`
	TotalSpace     SizeMeasure `json:"totalSpace"`
	AvailableSpace SizeMeasure `json:"availableSpace"`
	IsRemovable    bool        `json:"isRemovable"`
	DriveType      string      `json:"driveType"`
}

type NetworkOutput struct {
	DefaultInterface *NetworkInterface  `json:"defaultInterface"`
	DefaultGateway   *Gateway           `json:"defaultGateway"`
	Interfaces       []NetworkInterface `json:"interfaces"`
	Traffic          *NetworkTraffic    `json:"traffic"`
}

type NetworkInterface struct {
	Name          string      `json:"name"`
	MacAddress    string      `json:"macAddress"`
	IPv4Addresses []string    `json:"ipv4Addresses"`
	IPv6Addresses []string    `json:"ipv6Addresses"`
	Transmitted   SizeMeasure `json:"transmitted"`
	Received      SizeMeasure `json:"received"`
}

type Gateway struct {
	Interface string `json:"interface"`
	Address   string `json:"address"`
}

// NetworkTraffic holds per-second rates on the default interface.
type NetworkTraffic struct {
	Received    SizeMeasure `json:"received"`
	Transmitted SizeMeasure `json:"transmitted"`
}

type BatteryState string

const (
	BatteryCharging    BatteryState = "charging"
	BatteryDischarging BatteryState = "discharging"
	BatteryFull        BatteryState = "full"
	BatteryEmpty       BatteryState = "empty"
	BatteryUnknown     BatteryState = "unknown"
)

type BatteryOutput struct {
	ChargePercent    float64      `json:"chargePercent"`
	HealthPercent    float64      `json:"healthPercent"`
	State            BatteryState `json:"state"`
	IsCharging       bool         `json:"isCharging"`
	TimeTillFull     *int64       `json:"timeTillFull"`
	TimeTillEmpty    *int64       `json:"timeTillEmpty"`
	PowerConsumption float64      `json:"powerConsumption"`
	Voltage          *float64     `json:"voltage"`
	CycleCount       *int         `json:"cycleCount"`
}

type HostOutput struct {
	Hostname          *string `json:"hostname"`
	OSName            *string `json:"osName"`
	OSVersion         *string `json:"osVersion"`
	FriendlyOSVersion *string `json:"friendlyOsVersion"`
	BootTime          int64   `json:"bootTime"`
	Uptime            int64   `json:"uptime"`
}

type IPOutput struct {
	Address         string  `json:"address"`
	ApproxCity      string  `json:"approxCity"`
	ApproxCountry   string  `json:"approxCountry"`
	ApproxLatitude  float64 `json:"approxLatitude"`
	ApproxLongitude float64 `json:"approxLongitude"`
}

type WeatherOutput struct {
	IsDaytime      bool          `json:"isDaytime"`
	Status         WeatherStatus `json:"status"`
	CelsiusTemp    float64       `json:"celsiusTemp"`
	FahrenheitTemp float64       `json:"fahrenheitTemp"`
	WindSpeed      float64       `json:"windSpeed"`
}

type GPUOutput struct {
	Name        string  `json:"name"`
	Temperature int     `json:"temperature"`
	FanSpeeds   []int   `json:"fanSpeeds"`
	PowerUsage  float64 `json:"powerUsage"`
	PowerLimit  float64 `json:"powerLimit"`
	Utilization int     `json:"utilization"`
	MemoryUsed  uint64  `json:"memoryUsed"`
	MemoryTotal uint64  `json:"memoryTotal"`
}

func (CPUOutput) Kind() Kind     { return KindCPU }
func (MemoryOutput) Kind() Kind  { return KindMemory }
func (DiskOutput) Kind() Kind    { return KindDisk }
func (NetworkOutput) Kind() Kind { return KindNetwork }
func (BatteryOutput) Kind() Kind { return KindBattery }
func (HostOutput) Kind() Kind    { return KindHost }
func (IPOutput) Kind() Kind      { return KindIP }
func (WeatherOutput) Kind() Kind { return KindWeather }
func (GPUOutput) Kind() Kind     { return KindGPU }
