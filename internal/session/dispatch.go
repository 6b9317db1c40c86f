package session

import (
	"time"

	"github.com/kayako/beanstalk-broker/internal/broker"
	"github.com/kayako/beanstalk-broker/internal/proto"
	"github.com/kayako/beanstalk-broker/internal/stats"
	"github.com/kayako/beanstalk-broker/internal/tube"
)

// handleCommand dispatches one fully-parsed command. It returns false when
// the session should close (quit, or an unrecoverable error).
func (s *Session) handleCommand(cmd proto.Command) bool {
	switch cmd.Kind {
	case proto.CmdPut:
		s.pendingPut = &cmd
		s.pendingOversized = cmd.NBody > s.q.MaxJobSize()
		s.pendingBody = s.pendingBody[:0]
		return true

	case proto.CmdUse:
		s.q.RecordCommand("use")
		s.q.DecUse(s.used)
		s.used = cmd.Tube
		s.q.IncUse(cmd.Tube)
		s.writeResp(proto.Using(cmd.Tube))

	case proto.CmdWatch:
		s.q.RecordCommand("watch")
		if _, already := s.watched[cmd.Tube]; !already {
			s.watched[cmd.Tube] = struct{}{}
			s.q.IncWatch(cmd.Tube)
		}
		s.writeResp(proto.Watching(uint64(len(s.watched))))

	case proto.CmdIgnore:
		s.q.RecordCommand("ignore")
		if _, ok := s.watched[cmd.Tube]; ok {
			if len(s.watched) == 1 {
				s.writeResp(proto.Response{Kind: proto.RespNotIgnored})
			} else {
				delete(s.watched, cmd.Tube)
				s.q.DecWatch(cmd.Tube)
				s.writeResp(proto.Watching(uint64(len(s.watched))))
			}
		} else {
			s.writeResp(proto.Watching(uint64(len(s.watched))))
		}

	case proto.CmdDelete:
		s.q.RecordCommand("delete")
		s.respondFound(s.q.Delete(s.holder, cmd.ID), proto.RespDeleted)

	case proto.CmdRelease:
		s.q.RecordCommand("release")
		delay := time.Duration(cmd.Delay) * time.Second
		s.respondFound(s.q.Release(s.holder, cmd.ID, cmd.Pri, delay), proto.RespReleased)

	case proto.CmdBury:
		s.q.RecordCommand("bury")
		s.respondFound(s.q.Bury(s.holder, cmd.ID, cmd.Pri), proto.RespBuried)

	case proto.CmdTouch:
		s.q.RecordCommand("touch")
		s.respondFound(s.q.Touch(s.holder, cmd.ID), proto.RespTouched)

	case proto.CmdPeek:
		s.q.RecordCommand("peek")
		s.respondJob(s.q.PeekJob(cmd.ID))

	case proto.CmdPeekReady:
		s.q.RecordCommand("peek-ready")
		s.respondJob(s.q.PeekReady(s.used))

	case proto.CmdPeekDelayed:
		s.q.RecordCommand("peek-delayed")
		s.respondJob(s.q.PeekDelayed(s.used))

	case proto.CmdPeekBuried:
		s.q.RecordCommand("peek-buried")
		s.respondJob(s.q.PeekBuried(s.used))

	case proto.CmdKick:
		s.q.RecordCommand("kick")
		n := s.q.KickTube(s.used, cmd.Bound)
		s.writeResp(proto.KickedCount(n))

	case proto.CmdKickJob:
		s.q.RecordCommand("kick-job")
		if s.q.KickJob(cmd.ID) {
			s.writeResp(proto.Response{Kind: proto.RespKicked})
		} else {
			s.writeResp(proto.Response{Kind: proto.RespNotFound})
		}

	case proto.CmdPauseTube:
		s.q.RecordCommand("pause-tube")
		if s.q.PauseTube(cmd.Tube, time.Duration(cmd.Sec)*time.Second) {
			s.writeResp(proto.Response{Kind: proto.RespPaused})
		} else {
			s.writeResp(proto.Response{Kind: proto.RespNotFound})
		}

	case proto.CmdStats:
		s.q.RecordCommand("stats")
		s.writeYAML(s.q.ServerStats())

	case proto.CmdStatsJob:
		s.q.RecordCommand("stats-job")
		js, ok := s.q.StatsJob(cmd.ID)
		if !ok {
			s.writeResp(proto.Response{Kind: proto.RespNotFound})
			return true
		}
		s.writeYAML(js)

	case proto.CmdStatsTube:
		s.q.RecordCommand("stats-tube")
		ts, ok := s.q.StatsTube(cmd.Tube)
		if !ok {
			s.writeResp(proto.Response{Kind: proto.RespNotFound})
			return true
		}
		s.writeYAML(ts)

	case proto.CmdListTubes:
		s.q.RecordCommand("list-tubes")
		s.writeYAML(s.q.ListTubes())

	case proto.CmdListTubeUsed:
		s.q.RecordCommand("list-tube-used")
		s.writeResp(proto.Using(s.used))

	case proto.CmdListTubesWatched:
		s.q.RecordCommand("list-tubes-watched")
		s.writeYAML(watchedNames(s.watched))

	case proto.CmdReserve:
		s.q.RecordCommand("reserve")
		if s.q.DeadlineSoon(s.holder) {
			s.writeResp(proto.Response{Kind: proto.RespDeadlineSoon})
			return true
		}
		return s.doReserve(false, 0)

	case proto.CmdReserveWithTimeout:
		s.q.RecordCommand("reserve-with-timeout")
		if s.q.DeadlineSoon(s.holder) {
			s.writeResp(proto.Response{Kind: proto.RespDeadlineSoon})
			return true
		}
		return s.doReserve(true, time.Duration(cmd.Sec)*time.Second)

	case proto.CmdReserveJob:
		s.q.RecordCommand("reserve-job")
		s.q.NoteWorker(s.holder)
		outcome, ok := s.q.ReserveJob(s.holder, cmd.ID)
		if !ok {
			s.writeResp(proto.Response{Kind: proto.RespNotFound})
			return true
		}
		return s.respondReserveOutcome(outcome)

	case proto.CmdQuit:
		return false

	default:
		s.writeResp(proto.Response{Kind: proto.RespUnknownCommand})
	}

	return true
}

func (s *Session) respondFound(ok bool, onOK proto.RespKind) {
	if ok {
		s.writeResp(proto.Response{Kind: onOK})
	} else {
		s.writeResp(proto.Response{Kind: proto.RespNotFound})
	}
}

func (s *Session) respondJob(j *tube.Job, ok bool) {
	if !ok {
		s.writeResp(proto.Response{Kind: proto.RespNotFound})
		return
	}
	s.writeResp(proto.Found(j.ID, j.Data))
}

func (s *Session) writeYAML(v interface{}) {
	body, err := stats.Encode(v)
	if err != nil {
		s.writeResp(proto.Response{Kind: proto.RespInternalError})
		return
	}
	s.writeResp(proto.OK(body))
}

// respondReserveOutcome writes the response for a settled reserve: a real
// job as RESERVED, or DEADLINE_SOON when the holder has another reservation
// whose TTR is about to expire (spec.md §4.4/§6/§7 — DEADLINE_SOON replaces
// the grant of a new job, it is never sent alongside one).
func (s *Session) respondReserveOutcome(outcome broker.ReserveOutcome) bool {
	if outcome.Kind == broker.ReserveDeadlineSoon {
		s.writeResp(proto.Response{Kind: proto.RespDeadlineSoon})
		return true
	}
	s.writeResp(proto.Reserved(outcome.Job.ID, outcome.Job.Data))
	return true
}

// doReserve implements both reserve and reserve-with-timeout. withTimeout
// false means block indefinitely; true with d==0 means return immediately
// (TIMED_OUT if nothing is available). Callers must already have checked
// s.q.DeadlineSoon(s.holder) for the "subsequent reserve" case; this handles
// the "pending reserve" case for a waiter whose holder enters deadline-soon
// while blocked.
func (s *Session) doReserve(withTimeout bool, d time.Duration) bool {
	s.q.NoteWorker(s.holder)

	var deadline time.Time
	if withTimeout {
		deadline = time.Now().Add(d)
	}

	outcome, ok, waiter := s.q.Reserve(s.holder, watchedNames(s.watched), withTimeout, deadline)
	if ok {
		return s.respondReserveOutcome(outcome)
	}

	if withTimeout && d <= 0 {
		s.q.CancelWait(waiter)
		s.writeResp(proto.Response{Kind: proto.RespTimedOut})
		return true
	}

	return s.waitForReserve(waiter, withTimeout, d)
}

// waitForReserve blocks until waiter fires, its deadline passes, or the
// connection closes. While blocked the session does not read further
// pipelined commands from the client; Beanstalk's protocol is synchronous
// per connection, so this matches real client behavior (one outstanding
// request at a time).
func (s *Session) waitForReserve(waiter *broker.Waiter, withTimeout bool, d time.Duration) bool {
	var timerC <-chan time.Time
	if withTimeout {
		t := time.NewTimer(d)
		defer t.Stop()
		timerC = t.C
	}

	for {
		select {
		case outcome := <-waiter.Wait():
			return s.respondReserveOutcome(outcome)

		case <-timerC:
			s.q.CancelWait(waiter)
			select {
			case outcome := <-waiter.Wait():
				return s.respondReserveOutcome(outcome)
			default:
				s.writeResp(proto.Response{Kind: proto.RespTimedOut})
			}
			return true

		case res := <-s.readCh:
			if res.err != nil {
				s.q.CancelWait(waiter)
				return false
			}
			// A real client never pipelines past a blocking reserve; any
			// bytes received here are discarded rather than desyncing the
			// decoder mid-wait.
		}
	}
}
