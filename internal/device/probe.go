package device

import (
	"bufio"
	"context"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/gramshiksha/gramshiksha-client/internal/logger"
)

// Probe answers the one-shot capability question. Implementations are
// platform leaves; the tiering logic stays in Capabilities.
type Probe interface {
	Detect(ctx context.Context) Capabilities
}

// StaticProbe returns a fixed snapshot. Used by tests and by hosts that
// receive capabilities from the embedding environment.
type StaticProbe struct {
	Caps Capabilities
}

func (p StaticProbe) Detect(ctx context.Context) Capabilities { return p.Caps }

// HostProbe reads what the local OS exposes: /proc/meminfo for RAM,
// /sys/class/power_supply for battery, env hints for what the host UI layer
// measured (GPU class, connection class). Every sub-probe fails soft to the
// conservative default for that field.
type HostProbe struct {
	log *logger.Logger

	meminfoPath string
	powerDir    string
}

func NewHostProbe(log *logger.Logger) *HostProbe {
	return &HostProbe{
		log:         log.With("service", "HostProbe"),
		meminfoPath: "/proc/meminfo",
		powerDir:    "/sys/class/power_supply",
	}
}

func (p *HostProbe) Detect(ctx context.Context) Capabilities {
	caps := Defaults()
	caps.Cores = runtime.NumCPU()

	if ram, ok := p.probeRAM(); ok {
		caps.RAMGigabytes = ram
	}
	if gpu, ok := probeEnvGPU(); ok {
		caps.GPU = gpu
	}
	if conn, ok := probeEnvConnection(); ok {
		caps.Connection = conn
	}
	if level, charging, ok := p.probeBattery(); ok {
		caps.BatteryLevel = level
		caps.Charging = charging
	}

	p.log.Debug("Device capabilities detected",
		"ram_gb", caps.RAMGigabytes,
		"cores", caps.Cores,
		"gpu", caps.GPU,
		"connection", caps.Connection,
		"battery", caps.BatteryLevel,
		"charging", caps.Charging,
		"tier", caps.Tier().String(),
	)
	return caps
}

func (p *HostProbe) probeRAM() (float64, bool) {
	f, err := os.Open(p.meminfoPath)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, false
		}
		kb, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return 0, false
		}
		return kb / (1024 * 1024), true
	}
	return 0, false
}

// probeEnvGPU reads the GPU class the host shell measured (e.g. via a WebGL
// renderer sniff in the embedding webview) and handed down through the
// environment.
func probeEnvGPU() (GPUClass, bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEVICE_GPU_CLASS"))) {
	case "low":
		return GPULow, true
	case "medium":
		return GPUMedium, true
	case "high":
		return GPUHigh, true
	default:
		return "", false
	}
}

func probeEnvConnection() (ConnectionClass, bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEVICE_CONNECTION_CLASS"))) {
	case "2g":
		return Connection2G, true
	case "3g":
		return Connection3G, true
	case "4g":
		return Connection4G, true
	case "wifi":
		return ConnectionWifi, true
	default:
		return "", false
	}
}

func (p *HostProbe) probeBattery() (float64, bool, bool) {
	entries, err := os.ReadDir(p.powerDir)
	if err != nil {
		return 0, false, false
	}
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "BAT") {
			continue
		}
		base := p.powerDir + "/" + entry.Name()
		capRaw, err := os.ReadFile(base + "/capacity")
		if err != nil {
			continue
		}
		pct, err := strconv.Atoi(strings.TrimSpace(string(capRaw)))
		if err != nil {
			continue
		}
		charging := true
		if statusRaw, err := os.ReadFile(base + "/status"); err == nil {
			status := strings.ToLower(strings.TrimSpace(string(statusRaw)))
			charging = status != "discharging"
		}
		return float64(pct) / 100, charging, true
	}
	return 0, false, false
}
