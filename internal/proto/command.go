package proto

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies which command a Command value holds.
type Kind int

const (
	CmdPut Kind = iota
	CmdUse
	CmdReserve
	CmdReserveWithTimeout
	CmdReserveJob
	CmdDelete
	CmdRelease
	CmdBury
	CmdTouch
	CmdWatch
	CmdIgnore
	CmdPeek
	CmdPeekReady
	CmdPeekDelayed
	CmdPeekBuried
	CmdKick
	CmdKickJob
	CmdStats
	CmdStatsJob
	CmdStatsTube
	CmdListTubes
	CmdListTubeUsed
	CmdListTubesWatched
	CmdPauseTube
	CmdQuit
)

// Command is a decoded client request. Only the fields relevant to Kind are
// populated; this mirrors original_source's Rust enum (one variant per
// command) but Go has no tagged unions, so we flatten it into one struct.
type Command struct {
	Kind Kind

	ID    uint64
	Tube  string
	Pri   uint32
	Delay uint32
	TTR   uint32
	NBody uint32 // Put's n_bytes, parsed but not yet consumed
	Bound uint64 // Kick's bound
	Sec   uint32 // ReserveWithTimeout/PauseTube's seconds
}

// ParseCommand parses a single command line (without the trailing CRLF) into
// a Command. The line is split into verb and arguments on whitespace here.
//
// Errors returned are always one of two sentinels: one that IsUnknownCommand
// recognizes (an unrecognized verb) and one for every other malformed line;
// the codec maps them to RespUnknownCommand and RespBadFormat.
func ParseCommand(line []byte) (Command, error) {
	fields := strings.Fields(string(line))
	if len(fields) == 0 {
		return Command{}, errBadFormat
	}

	verb := fields[0]
	args := fields[1:]

	switch verb {
	case "put":
		return parsePut(args)
	case "use":
		return parseTubeArg(CmdUse, args)
	case "reserve":
		return parseNoArgs(CmdReserve, args)
	case "reserve-with-timeout":
		return parseReserveWithTimeout(args)
	case "reserve-job":
		return parseIDArg(CmdReserveJob, args)
	case "delete":
		return parseIDArg(CmdDelete, args)
	case "release":
		return parseRelease(args)
	case "bury":
		return parseBury(args)
	case "touch":
		return parseIDArg(CmdTouch, args)
	case "watch":
		return parseTubeArg(CmdWatch, args)
	case "ignore":
		return parseTubeArg(CmdIgnore, args)
	case "peek":
		return parseIDArg(CmdPeek, args)
	case "peek-ready":
		return parseNoArgs(CmdPeekReady, args)
	case "peek-delayed":
		return parseNoArgs(CmdPeekDelayed, args)
	case "peek-buried":
		return parseNoArgs(CmdPeekBuried, args)
	case "kick":
		return parseKick(args)
	case "kick-job":
		return parseIDArg(CmdKickJob, args)
	case "stats":
		return parseNoArgs(CmdStats, args)
	case "stats-job":
		return parseIDArg(CmdStatsJob, args)
	case "stats-tube":
		return parseTubeArg(CmdStatsTube, args)
	case "list-tubes":
		return parseNoArgs(CmdListTubes, args)
	case "list-tube-used":
		return parseNoArgs(CmdListTubeUsed, args)
	case "list-tubes-watched":
		return parseNoArgs(CmdListTubesWatched, args)
	case "pause-tube":
		return parsePauseTube(args)
	case "quit":
		return parseNoArgs(CmdQuit, args)
	default:
		return Command{}, errUnknownCommand
	}
}

// errBadFormat/errUnknownCommand are sentinels ParseCommand returns; the
// codec translates them to the corresponding Response.
var (
	errBadFormat      = fmt.Errorf("bad command format")
	errUnknownCommand = fmt.Errorf("unknown command")
)

func IsUnknownCommand(err error) bool { return err == errUnknownCommand }

func parseNoArgs(k Kind, args []string) (Command, error) {
	if len(args) != 0 {
		return Command{}, errBadFormat
	}
	return Command{Kind: k}, nil
}

func parseTubeArg(k Kind, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, errBadFormat
	}
	if err := CheckName(args[0]); err != nil {
		return Command{}, errBadFormat
	}
	return Command{Kind: k, Tube: args[0]}, nil
}

func parseIDArg(k Kind, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, errBadFormat
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return Command{}, errBadFormat
	}
	return Command{Kind: k, ID: id}, nil
}

func parsePut(args []string) (Command, error) {
	if len(args) != 4 {
		return Command{}, errBadFormat
	}
	pri, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return Command{}, errBadFormat
	}
	delay, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return Command{}, errBadFormat
	}
	ttr, err := strconv.ParseUint(args[2], 10, 32)
	if err != nil {
		return Command{}, errBadFormat
	}
	nbody, err := strconv.ParseUint(args[3], 10, 32)
	if err != nil {
		return Command{}, errBadFormat
	}
	return Command{
		Kind:  CmdPut,
		Pri:   uint32(pri),
		Delay: uint32(delay),
		TTR:   uint32(ttr),
		NBody: uint32(nbody),
	}, nil
}

func parseReserveWithTimeout(args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, errBadFormat
	}
	sec, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return Command{}, errBadFormat
	}
	return Command{Kind: CmdReserveWithTimeout, Sec: uint32(sec)}, nil
}

func parseRelease(args []string) (Command, error) {
	if len(args) != 3 {
		return Command{}, errBadFormat
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return Command{}, errBadFormat
	}
	pri, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return Command{}, errBadFormat
	}
	delay, err := strconv.ParseUint(args[2], 10, 32)
	if err != nil {
		return Command{}, errBadFormat
	}
	return Command{Kind: CmdRelease, ID: id, Pri: uint32(pri), Delay: uint32(delay)}, nil
}

func parseBury(args []string) (Command, error) {
	if len(args) != 2 {
		return Command{}, errBadFormat
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return Command{}, errBadFormat
	}
	pri, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return Command{}, errBadFormat
	}
	return Command{Kind: CmdBury, ID: id, Pri: uint32(pri)}, nil
}

func parseKick(args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, errBadFormat
	}
	bound, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return Command{}, errBadFormat
	}
	return Command{Kind: CmdKick, Bound: bound}, nil
}

func parsePauseTube(args []string) (Command, error) {
	if len(args) != 2 {
		return Command{}, errBadFormat
	}
	if err := CheckName(args[0]); err != nil {
		return Command{}, errBadFormat
	}
	sec, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return Command{}, errBadFormat
	}
	return Command{Kind: CmdPauseTube, Tube: args[0], Sec: uint32(sec)}, nil
}
