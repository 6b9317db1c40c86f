/*
	Package stats defines the YAML-serializable payloads returned by the
	stats/stats-job/stats-tube/list-tubes command family (spec.md §6),
	translated from original_source's serde-derived structs
	(src/wire/protocol.rs's JobStats/ServerStats/TubeStatsResp and
	src/types/tube.rs's TubeStats) into Go structs tagged for
	gopkg.in/yaml.v3, the YAML library the retrieval pack overwhelmingly
	prefers.
*/
package stats

import "gopkg.in/yaml.v3"

// TubeCounters holds the cumulative, per-tube counters from spec.md §3's
// Tube.stats plus the live job counts by state.
type TubeCounters struct {
	CurrentJobsUrgent   uint64 `yaml:"current-jobs-urgent"`
	CurrentJobsReady    uint64 `yaml:"current-jobs-ready"`
	CurrentJobsReserved uint64 `yaml:"current-jobs-reserved"`
	CurrentJobsDelayed  uint64 `yaml:"current-jobs-delayed"`
	CurrentJobsBuried   uint64 `yaml:"current-jobs-buried"`
	TotalJobs           uint64 `yaml:"total-jobs"`
	CurrentUsing        uint64 `yaml:"current-using"`
	CurrentWaiting      uint64 `yaml:"current-waiting"`
	CurrentWatching     uint64 `yaml:"current-watching"`
	Pause               uint64 `yaml:"pause"`
	CmdDelete           uint64 `yaml:"cmd-delete"`
	CmdPauseTube        uint64 `yaml:"cmd-pause-tube"`
}

// TubeStats is the stats-tube response payload.
type TubeStats struct {
	Name string `yaml:"name"`
	TubeCounters `yaml:",inline"`
	PauseTimeLeft uint64 `yaml:"pause-time-left"`
}

// JobStats is the stats-job response payload.
type JobStats struct {
	ID       uint64 `yaml:"id"`
	Tube     string `yaml:"tube"`
	State    string `yaml:"state"`
	Pri      uint32 `yaml:"pri"`
	Age      uint64 `yaml:"age"`
	Delay    uint64 `yaml:"delay"`
	TTR      uint32 `yaml:"ttr"`
	TimeLeft uint64 `yaml:"time-left"`
	Reserves uint64 `yaml:"reserves"`
	Timeouts uint64 `yaml:"timeouts"`
	Releases uint64 `yaml:"releases"`
	Buries   uint64 `yaml:"buries"`
	Kicks    uint64 `yaml:"kicks"`
}

// ServerStats is the stats response payload (spec.md §6).
type ServerStats struct {
	CurrentJobsUrgent   uint64 `yaml:"current-jobs-urgent"`
	CurrentJobsReady    uint64 `yaml:"current-jobs-ready"`
	CurrentJobsReserved uint64 `yaml:"current-jobs-reserved"`
	CurrentJobsDelayed  uint64 `yaml:"current-jobs-delayed"`
	CurrentJobsBuried   uint64 `yaml:"current-jobs-buried"`

	CmdPut                uint64 `yaml:"cmd-put"`
	CmdPeek               uint64 `yaml:"cmd-peek"`
	CmdPeekReady          uint64 `yaml:"cmd-peek-ready"`
	CmdPeekDelayed        uint64 `yaml:"cmd-peek-delayed"`
	CmdPeekBuried         uint64 `yaml:"cmd-peek-buried"`
	CmdReserve            uint64 `yaml:"cmd-reserve"`
	CmdReserveWithTimeout uint64 `yaml:"cmd-reserve-with-timeout"`
	CmdTouch              uint64 `yaml:"cmd-touch"`
	CmdUse                uint64 `yaml:"cmd-use"`
	CmdWatch              uint64 `yaml:"cmd-watch"`
	CmdIgnore             uint64 `yaml:"cmd-ignore"`
	CmdDelete             uint64 `yaml:"cmd-delete"`
	CmdRelease            uint64 `yaml:"cmd-release"`
	CmdBury               uint64 `yaml:"cmd-bury"`
	CmdKick               uint64 `yaml:"cmd-kick"`
	CmdStats              uint64 `yaml:"cmd-stats"`
	CmdStatsJob           uint64 `yaml:"cmd-stats-job"`
	CmdStatsTube          uint64 `yaml:"cmd-stats-tube"`
	CmdListTubes          uint64 `yaml:"cmd-list-tubes"`
	CmdListTubeUsed       uint64 `yaml:"cmd-list-tube-used"`
	CmdListTubesWatched   uint64 `yaml:"cmd-list-tubes-watched"`
	CmdPauseTube          uint64 `yaml:"cmd-pause-tube"`

	JobTimeouts        uint64 `yaml:"job-timeouts"`
	TotalJobs          uint64 `yaml:"total-jobs"`
	MaxJobSize         uint64 `yaml:"max-job-size"`
	CurrentTubes       uint64 `yaml:"current-tubes"`
	CurrentConnections uint64 `yaml:"current-connections"`
	CurrentProducers   uint64 `yaml:"current-producers"`
	CurrentWorkers     uint64 `yaml:"current-workers"`
	CurrentWaiting     uint64 `yaml:"current-waiting"`
	TotalConnections   uint64 `yaml:"total-connections"`
	PID                int    `yaml:"pid"`
	Version            string `yaml:"version"`
	UptimeSeconds      uint64 `yaml:"uptime"`
	Draining           bool   `yaml:"draining"`
	ID                 string `yaml:"id"`
	Hostname           string `yaml:"hostname"`
}

// Encode marshals v (one of the payload structs above, or a []string for
// list-tubes) to YAML bytes, the wire format required by spec.md §6's
// "OK <n>\r\n<yaml>\r\n" responses.
func Encode(v interface{}) ([]byte, error) {
	return yaml.Marshal(v)
}
