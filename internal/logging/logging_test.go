package logging

import "testing"

func TestNoOpLoggerDoesNotPanic(t *testing.T) {
	var l Logger = NoOpLogger{}
	l.Debug("x")
	l.Info("x", "k", "v")
	l.Warn("x")
	l.Error("x")
}

func TestWithComponentTagsArgs(t *testing.T) {
	rec := &recordingLogger{}
	l := WithComponent(rec, "recognizer")
	l.Info("hello", "k", "v")

	if len(rec.args) < 2 || rec.args[0] != "component" || rec.args[1] != "recognizer" {
		t.Fatalf("expected component tag prefix, got %v", rec.args)
	}
}

type recordingLogger struct {
	msg  string
	args []interface{}
}

func (r *recordingLogger) Debug(msg string, args ...interface{}) { r.msg, r.args = msg, args }
func (r *recordingLogger) Info(msg string, args ...interface{})  { r.msg, r.args = msg, args }
func (r *recordingLogger) Warn(msg string, args ...interface{})  { r.msg, r.args = msg, args }
func (r *recordingLogger) Error(msg string, args ...interface{}) { r.msg, r.args = msg, args }
