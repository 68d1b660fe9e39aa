// Package config reads and initializes the operator-facing settings
// file shared by every uplink instance in a process.
//
// The file lives in a fixed directory next to the components' own
// data directories and is created with defaults the first time any
// instance starts. Operators use it to opt out of submissions and to
// turn on diagnostic logging.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DirName  = "bStats"
	FileName = "config.yml"
)

const header = `bStats collects some data for plugin authors like how many servers are using their plugins.
To honor their work, you should not disable it.
This has nearly no effect on the server performance!
Check out https://bStats.org/ to learn more :)`

// Config holds the recognized settings.
type Config struct {
	Enabled               bool   `yaml:"enabled"`
	ServerUUID            string `yaml:"serverUuid"`
	LogFailedRequests     bool   `yaml:"logFailedRequests"`
	LogSentData           bool   `yaml:"logSentData"`
	LogResponseStatusText bool   `yaml:"logResponseStatusText"`
}

// fileConfig distinguishes keys that are absent from the file from
// keys set to their zero value.
type fileConfig struct {
	Enabled               *bool   `yaml:"enabled"`
	ServerUUID            *string `yaml:"serverUuid"`
	LogFailedRequests     *bool   `yaml:"logFailedRequests"`
	LogSentData           *bool   `yaml:"logSentData"`
	LogResponseStatusText *bool   `yaml:"logResponseStatusText"`
}

// Error reports a settings file that could not be read or parsed.
// Load still returns usable defaults alongside it.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("problem with config file '%s': %v", e.Path, e.Err)
}

func (e *Error) Cause() error  { return e.Err }
func (e *Error) Unwrap() error { return e.Err }

// DefaultPath returns the location of the settings file for
// components whose data directories live under dataRoot.
func DefaultPath(dataRoot string) string {
	return filepath.Join(dataRoot, DirName, FileName)
}

// Defaults returns the default settings with a freshly generated
// server identity.
func Defaults() Config {
	return Config{
		Enabled:    true,
		ServerUUID: uuid.NewString(),
	}
}

// Load reads the settings file at path. When the file or its server
// identity is missing, the missing keys are filled with defaults and
// the file is written back; failures to write are ignored. A file
// that cannot be parsed is left alone, and Load returns defaults
// together with an *Error.
func Load(path string) (Config, error) {
	conf := Defaults()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		_ = Write(path, conf)
		return conf, nil
	} else if err != nil {
		return conf, &Error{Path: path, Err: errors.Wrap(err, "problem reading file")}
	}

	in := fileConfig{}
	if err = yaml.Unmarshal(data, &in); err != nil {
		return conf, &Error{Path: path, Err: errors.Wrap(err, "problem parsing yaml")}
	}

	complete := in.ServerUUID != nil && *in.ServerUUID != ""
	if complete {
		conf.ServerUUID = *in.ServerUUID
	}
	if in.Enabled != nil {
		conf.Enabled = *in.Enabled
	}
	if in.LogFailedRequests != nil {
		conf.LogFailedRequests = *in.LogFailedRequests
	}
	if in.LogSentData != nil {
		conf.LogSentData = *in.LogSentData
	}
	if in.LogResponseStatusText != nil {
		conf.LogResponseStatusText = *in.LogResponseStatusText
	}

	if !complete {
		_ = Write(path, conf)
	}

	return conf, nil
}

// Write stores conf at path, preceded by the explanatory header,
// creating the parent directory if needed.
func Write(path string, conf Config) error {
	body := &yaml.Node{}
	if err := body.Encode(conf); err != nil {
		return errors.Wrap(err, "problem encoding config")
	}

	doc := &yaml.Node{
		Kind:        yaml.DocumentNode,
		HeadComment: commentLines(header),
		Content:     []*yaml.Node{body},
	}

	buf := &bytes.Buffer{}
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "problem rendering config")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, "problem rendering config")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "problem creating directory for '%s'", path)
	}

	return errors.Wrapf(os.WriteFile(path, buf.Bytes(), 0644), "problem writing '%s'", path)
}

func commentLines(text string) string {
	lines := strings.Split(text, "\n")
	for idx := range lines {
		lines[idx] = "# " + lines[idx]
	}
	return strings.Join(lines, "\n")
}
