package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

var (
	// Info 正常日志，输出到 stdout
	Info *logrus.Logger

	// Error 错误日志，输出到 stderr
	Error *logrus.Logger
)

// Fields 结构化字段
type Fields = logrus.Fields

func init() {
	Info = newLogger(os.Stdout)
	Error = newLogger(os.Stderr)
}

func newLogger(out *os.File) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006/01/02 15:04:05",
	})
	return l
}

// SetLevel 设置日志级别 (debug/info/warn/error)
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Info.SetLevel(lvl)
	Error.SetLevel(lvl)
	return nil
}

// WithFields 带结构化字段的日志
func WithFields(fields Fields) *logrus.Entry {
	return Info.WithFields(fields)
}

// Println 输出正常日志到 stdout
func Println(v ...interface{}) {
	Info.Infoln(v...)
}

// Printf 格式化输出正常日志到 stdout
func Printf(format string, v ...interface{}) {
	Info.Infof(format, v...)
}

// Debugf 调试日志
func Debugf(format string, v ...interface{}) {
	Info.Debugf(format, v...)
}

// Errorf 格式化输出错误日志到 stderr
func Errorf(format string, v ...interface{}) {
	Error.Errorf(format, v...)
}

// Fatalf 输出致命错误并退出程序
func Fatalf(format string, v ...interface{}) {
	Error.Fatalf(format, v...)
}
