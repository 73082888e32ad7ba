package ps

import (
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

func CPUStatus() (CPU, error) {
	list, err := cpu.Percent(time.Millisecond*50, false)
	if err != nil {
		return CPU{}, err
	}

	return CPU{
		Percent: list[0],
	}, nil
}

func MemoryStatus() (Memory, error) {
	memory, err := mem.VirtualMemory()
	if err != nil {
		return Memory{}, err
	}

	return Memory{
		Total:       memory.Total,
		Used:        memory.Used,
		UsedPercent: memory.UsedPercent,
	}, nil
}

// Self samples the current process. CPU is the share of one core used
// since the process started.
func Self() (Process, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return Process{}, err
	}
	percent, err := p.CPUPercent()
	if err != nil {
		return Process{}, err
	}
	info, err := p.MemoryInfo()
	if err != nil {
		return Process{}, err
	}

	return Process{
		CPUPercent: percent,
		RSS:        info.RSS,
	}, nil
}

type CPU struct {
	Percent float64 `json:"percent"`
}

type Memory struct {
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	UsedPercent float64 `json:"usedPercent"`
}

type Process struct {
	CPUPercent float64 `json:"cpuPercent"`
	RSS        uint64  `json:"rss"`
}
