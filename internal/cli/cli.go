// Package cli parses parley's command line.
package cli

import (
	"fmt"
	"io"

	flag "github.com/spf13/pflag"
)

type Command string

const (
	CommandServe   Command = "serve"
	CommandStatus  Command = "status"
	CommandStop    Command = "stop"
	CommandLast    Command = "last"
	CommandSpeak   Command = "speak"
	CommandHush    Command = "hush"
	CommandVoices  Command = "voices"
	CommandDevices Command = "devices"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

var validCommands = map[Command]bool{
	CommandServe:   true,
	CommandStatus:  true,
	CommandStop:    true,
	CommandLast:    true,
	CommandSpeak:   true,
	CommandHush:    true,
	CommandVoices:  true,
	CommandDevices: true,
	CommandDoctor:  true,
	CommandVersion: true,
	CommandHelp:    true,
}

// Parsed is the validated command line. Port is -1 unless --port was given.
type Parsed struct {
	Command    Command
	ConfigPath string
	Port       int
	Voice      string
	Args       []string
	ShowHelp   bool
}

func Parse(args []string) (Parsed, error) {
	fs := flag.NewFlagSet("parley", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	var parsed Parsed
	fs.StringVarP(&parsed.ConfigPath, "config", "c", "", "config file path")
	fs.IntVarP(&parsed.Port, "port", "p", -1, "relay port")
	fs.StringVarP(&parsed.Voice, "voice", "v", "", "voice for speak")
	help := fs.BoolP("help", "h", false, "show help")
	showVersion := fs.Bool("version", false, "show version")

	if err := fs.Parse(args); err != nil {
		return Parsed{}, err
	}
	if fs.Changed("config") && parsed.ConfigPath == "" {
		return Parsed{}, fmt.Errorf("--config requires a path")
	}
	if fs.Changed("port") && (parsed.Port < 0 || parsed.Port > 65535) {
		return Parsed{}, fmt.Errorf("--port must be between 0 and 65535")
	}

	switch {
	case *help:
		parsed.Command, parsed.ShowHelp = CommandHelp, true
		return parsed, nil
	case *showVersion:
		parsed.Command = CommandVersion
		return parsed, nil
	}

	rest := fs.Args()
	if len(rest) == 0 {
		parsed.Command, parsed.ShowHelp = CommandHelp, true
		return parsed, nil
	}

	cmd := Command(rest[0])
	if !validCommands[cmd] {
		return Parsed{}, fmt.Errorf("unknown command: %s", rest[0])
	}
	parsed.Command = cmd
	parsed.ShowHelp = cmd == CommandHelp
	parsed.Args = rest[1:]
	if cmd != CommandSpeak && len(parsed.Args) > 0 {
		return Parsed{}, fmt.Errorf("unexpected arguments after command %q", cmd)
	}
	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [flags] <command> [text...]

Commands:
  serve     Start the browser speech relay and deliver text into chat
  status    Print the relay state
  stop      Stop the running relay
  last      Print the last submitted text
  speak     Speak text (arguments or stdin), through the running relay if any
  hush      Stop current speech
  voices    List text-to-speech voices
  devices   List audio output devices
  doctor    Run configuration and environment checks
  version   Print version information
  help      Show this help

Flags:
  -c, --config PATH   Config file path (default: $XDG_CONFIG_HOME/parley/config.jsonc)
  -p, --port N        Relay port (default: relay.port, 3847)
  -v, --voice NAME    Voice for speak
  -h, --help          Show help
      --version       Show version
`, binaryName)
}
