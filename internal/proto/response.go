package proto

// RespKind identifies which server response a Response holds.
type RespKind int

const (
	RespInserted RespKind = iota
	RespBuriedID
	RespExpectedCRLF
	RespJobTooBig
	RespDraining
	RespUsing
	RespDeadlineSoon
	RespTimedOut
	RespReserved
	RespFound
	RespNotFound
	RespDeleted
	RespReleased
	RespBuried
	RespTouched
	RespWatching
	RespNotIgnored
	RespKickedCount
	RespKicked
	RespOK
	RespPaused
	RespBadFormat
	RespUnknownCommand
	RespInternalError
	RespOutOfMemory
)

// Response is a server reply. Only the fields relevant to Kind are
// populated. Job-carrying responses (Reserved/Found) and data-carrying
// responses (OK) keep their payload in Body; the encoder writes it as raw
// bytes after the header line.
type Response struct {
	Kind RespKind

	ID    uint64
	Tube  string
	Count uint64

	// Body is the bytes following a RespReserved/RespFound/RespOK header.
	Body []byte
}

func Inserted(id uint64) Response     { return Response{Kind: RespInserted, ID: id} }
func BuriedID(id uint64) Response     { return Response{Kind: RespBuriedID, ID: id} }
func Using(tube string) Response      { return Response{Kind: RespUsing, Tube: tube} }
func Reserved(id uint64, body []byte) Response {
	return Response{Kind: RespReserved, ID: id, Body: body}
}
func Found(id uint64, body []byte) Response { return Response{Kind: RespFound, ID: id, Body: body} }
func Watching(n uint64) Response            { return Response{Kind: RespWatching, Count: n} }
func KickedCount(n uint64) Response         { return Response{Kind: RespKickedCount, Count: n} }
func OK(body []byte) Response               { return Response{Kind: RespOK, Body: body} }

var simple = map[RespKind]string{
	RespExpectedCRLF:   "EXPECTED_CRLF",
	RespJobTooBig:      "JOB_TOO_BIG",
	RespDraining:       "DRAINING",
	RespDeadlineSoon:   "DEADLINE_SOON",
	RespTimedOut:       "TIMED_OUT",
	RespNotFound:       "NOT_FOUND",
	RespDeleted:        "DELETED",
	RespReleased:       "RELEASED",
	RespBuried:         "BURIED",
	RespTouched:        "TOUCHED",
	RespNotIgnored:     "NOT_IGNORED",
	RespKicked:         "KICKED",
	RespPaused:         "PAUSED",
	RespBadFormat:      "BAD_FORMAT",
	RespUnknownCommand: "UNKNOWN_COMMAND",
	RespInternalError:  "INTERNAL_ERROR",
	RespOutOfMemory:    "OUT_OF_MEMORY",
}

// Name returns the bare wire verb for simple (no-argument) responses. ok is
// false for a response kind that carries an argument (RespInserted,
// RespReserved, ...); those are encoded by internal/codec directly.
func (r RespKind) Name() (string, bool) {
	s, ok := simple[r]
	return s, ok
}
