package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "phawd":
		return phawdTemplate, nil
	case "shm":
		return shmTemplate, nil
	case "socket":
		return socketTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const parametersTemplate = `
[[parameters]]
name = "pw_d"
kind = "FLOAT64"
value = 1.213

[[parameters]]
name = "pw_s64"
kind = "INT64"
value = 12

[[parameters]]
name = "pw_vec3d"
kind = "VEC3_FLOAT64"
value = [-1.4, 2.0, 3.0]
`

const shmTemplate = `[segment]
name = "phawd"
interval_ms = 100
unlink_on_exit = false

[log]
level = "info"
` + parametersTemplate

const socketTemplate = `[socket]
host = "127.0.0.1"
port = 5230
inbound_count = 0
connect_timeout_ms = 5000
connect_attempts = 10
read_poll_ms = 1
write_timeout_ms = 1000
handshake = false

[socket.retry]
initial_delay_ms = 250
max_delay_ms = 5000
multiplier = 2.0
jitter = true

[log]
level = "info"
` + parametersTemplate

const phawdTemplate = `[segment]
name = "phawd"
interval_ms = 100
unlink_on_exit = false

[socket]
host = "127.0.0.1"
port = 5230
inbound_count = 0
connect_timeout_ms = 5000
connect_attempts = 10
read_poll_ms = 1
write_timeout_ms = 1000
handshake = false

[socket.retry]
initial_delay_ms = 250
max_delay_ms = 5000
multiplier = 2.0
jitter = true

[log]
level = "info"
timestamp = false
no_color = false
` + parametersTemplate
