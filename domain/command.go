package domain

import "strings"

// Command is the tagged union produced by parsing one protocol line.
type Command interface {
	isCommand()
}

type Help struct{}
type Exit struct{}
type List struct{}
type Me struct{}
type Leave struct{}
type History struct{}
type SetUsername struct{ Name string }
type CreateRoom struct{ Room string }
type JoinRoom struct{ Room string }
type Search struct{ Terms string }
type Send struct{ Text string }
type Invalid struct{}

func (Help) isCommand()        {}
func (Exit) isCommand()        {}
func (List) isCommand()        {}
func (Me) isCommand()          {}
func (Leave) isCommand()       {}
func (History) isCommand()     {}
func (SetUsername) isCommand() {}
func (CreateRoom) isCommand()  {}
func (JoinRoom) isCommand()    {}
func (Search) isCommand()      {}
func (Send) isCommand()        {}
func (Invalid) isCommand()     {}

const (
	cmdHelp        = ">help"
	cmdExit        = ">exit"
	cmdList        = ">list"
	cmdMe          = ">me"
	cmdLeave       = ">leave"
	cmdHistory     = ">history"
	cmdSetUsername = ">set-username"
	cmdCreateRoom  = ">create-room"
	cmdJoinRoom    = ">join-room"
	cmdSearch      = ">search"
)

// ParseCommand turns one input line into a Command. Lines without the '>'
// prefix are chat messages for the current room.
func ParseCommand(line string) Command {
	if !strings.HasPrefix(line, ">") {
		return Send{Text: line}
	}

	// These commands don't require extra args
	switch line {
	case cmdHelp:
		return Help{}
	case cmdExit:
		return Exit{}
	case cmdList:
		return List{}
	case cmdMe:
		return Me{}
	case cmdLeave:
		return Leave{}
	case cmdHistory:
		return History{}
	}

	command, rest, found := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	if !found || rest == "" {
		return Invalid{}
	}

	switch command {
	case cmdSetUsername:
		return SetUsername{Name: rest}
	case cmdCreateRoom:
		return CreateRoom{Room: rest}
	case cmdJoinRoom:
		return JoinRoom{Room: rest}
	case cmdSearch:
		return Search{Terms: rest}
	}
	return Invalid{}
}
