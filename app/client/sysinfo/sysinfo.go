package sysinfo

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/samber/do"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

const cpuSampleInterval = 500 * time.Millisecond

type Status struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryFreeGB  float64 `json:"memory_free_gb"`
	DiskPercent   float64 `json:"disk_percent"`
}

type Client struct {
	diskPath string
}

func New(_ *do.Injector) (*Client, error) {
	return NewClient(), nil
}

func NewClient() *Client {
	path := "/"
	if runtime.GOOS == "windows" {
		path = `C:\`
	}

	return &Client{diskPath: path}
}

// Status samples CPU usage for half a second, then reads memory and disk usage.
func (c *Client) Status(ctx context.Context) (Status, error) {
	cpuPercent, err := cpu.PercentWithContext(ctx, cpuSampleInterval, false)
	if err != nil {
		return Status{}, fmt.Errorf("failed to read cpu usage: %w", err)
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("failed to read memory usage: %w", err)
	}

	usage, err := disk.UsageWithContext(ctx, c.diskPath)
	if err != nil {
		return Status{}, fmt.Errorf("failed to read disk usage: %w", err)
	}

	result := Status{
		MemoryPercent: vm.UsedPercent,
		MemoryFreeGB:  float64(vm.Available) / (1 << 30),
		DiskPercent:   usage.UsedPercent,
	}
	if len(cpuPercent) > 0 {
		result.CPUPercent = cpuPercent[0]
	}

	return result, nil
}
