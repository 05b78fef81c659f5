package rep

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// TempoStats summarizes the spacing between consecutive repetitions.
type TempoStats struct {
	Reps           int           `json:"reps"`
	MeanInterval   time.Duration `json:"mean_interval"`
	StdDevInterval time.Duration `json:"stddev_interval"`
}

// Tempo computes the mean and standard deviation of the time between
// consecutive repetitions. times must be in capture order. Fewer than two
// repetitions give zero intervals.
func Tempo(times []time.Time) TempoStats {
	ts := TempoStats{Reps: len(times)}
	if len(times) < 2 {
		return ts
	}

	intervals := make([]float64, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		intervals = append(intervals, times[i].Sub(times[i-1]).Seconds())
	}

	if len(intervals) == 1 {
		ts.MeanInterval = seconds(intervals[0])
		return ts
	}

	mean, std := stat.MeanStdDev(intervals, nil)
	ts.MeanInterval = seconds(mean)
	ts.StdDevInterval = seconds(std)
	return ts
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
