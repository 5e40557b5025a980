/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package log

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type LogLevel int

const (
	LogPrefix  = "[go-spec] "
	HelpLevels = "Must be one of: error, warning, info, debug."
)

const (
	ErrorLevel LogLevel = iota
	WarningLevel
	InfoLevel
	DebugLevel
)

var levelMapping = map[string]LogLevel{
	"error":   ErrorLevel,
	"warning": WarningLevel,
	"info":    InfoLevel,
	"debug":   DebugLevel,
}

var logrusLevels = map[LogLevel]logrus.Level{
	ErrorLevel:   logrus.ErrorLevel,
	WarningLevel: logrus.WarnLevel,
	InfoLevel:    logrus.InfoLevel,
	DebugLevel:   logrus.DebugLevel,
}

type Logger struct {
	level LogLevel
	*logrus.Logger
}

var logger = newLogger(os.Stderr)

func newLogger(out io.Writer) *Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(logrus.InfoLevel)
	l.Formatter = &logrus.TextFormatter{
		FullTimestamp:    true,
		DisableColors:    true,
		QuoteEmptyFields: true,
	}
	return &Logger{level: InfoLevel, Logger: l}
}

// ParseLevel converts a level name to LogLevel
func ParseLevel(strLevel string) (LogLevel, error) {
	level, ok := levelMapping[strLevel]
	if !ok {
		return InfoLevel, errors.New("Wrong log level. " + HelpLevels)
	}
	return level, nil
}

func SetLevel(strLevel string) error {
	level, err := ParseLevel(strLevel)
	if err != nil {
		return err
	}
	logger.level = level
	logger.Logger.SetLevel(logrusLevels[level])
	return nil
}

func Init(out io.Writer, strLevel string) {
	logger.SetOutput(out)
	if err := SetLevel(strLevel); err != nil {
		panic(err)
	}
}

// Writer returns the output the logger writes to. It is used to
// plug the logger into http middleware.
func Writer() io.Writer {
	return logger.Out
}

// Std returns the underlying logrus logger
func Std() *logrus.Logger {
	return logger.Logger
}

func Error(format string, v ...interface{}) {
	if logger.level >= ErrorLevel {
		logger.Error(LogPrefix + fmt.Sprintf(format, v...))
	}
}

func Warning(format string, v ...interface{}) {
	if logger.level >= WarningLevel {
		logger.Warn(LogPrefix + fmt.Sprintf(format, v...))
	}
}

func Info(format string, v ...interface{}) {
	if logger.level >= InfoLevel {
		logger.Info(LogPrefix + fmt.Sprintf(format, v...))
	}
}

func Debug(format string, v ...interface{}) {
	if logger.level >= DebugLevel {
		logger.Debug(LogPrefix + fmt.Sprintf(format, v...))
	}
}
