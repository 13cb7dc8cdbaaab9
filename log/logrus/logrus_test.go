package logrus

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/unkn0wn-root/swrcache"
)

func TestEntries(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := New(base)

	l.Debug("debug", nil)
	l.Warn("storage set failed", swrcache.Fields{"key": "user:1", "err": errors.New("down")})

	if len(hook.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(hook.Entries))
	}
	last := hook.LastEntry()
	if last.Level != logrus.WarnLevel || last.Message != "storage set failed" {
		t.Fatalf("unexpected entry %v %q", last.Level, last.Message)
	}
	if last.Data["component"] != "swrcache" || last.Data["key"] != "user:1" {
		t.Fatalf("fields = %v", last.Data)
	}
	if err, ok := last.Data[logrus.ErrorKey].(error); !ok || err.Error() != "down" {
		t.Fatalf("error field = %v", last.Data[logrus.ErrorKey])
	}
}
