package systemd

import "testing"

func TestGetListenersWithoutActivation(t *testing.T) {
	t.Setenv("LISTEN_PID", "")
	t.Setenv("LISTEN_FDS", "")

	listeners, err := GetListeners()
	if err != nil {
		t.Fatalf("GetListeners failed: %v", err)
	}
	if listeners.Activated {
		t.Error("Expected Activated to be false without LISTEN_FDS")
	}
	if listeners.Metrics != nil {
		t.Error("Expected no metrics listener")
	}
}

func TestNotifyWithoutSocket(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")

	if IsSystemdService() {
		t.Error("Expected IsSystemdService to be false")
	}
	for name, notify := range map[string]func() error{
		"ready":    NotifyReady,
		"stopping": NotifyStopping,
		"watchdog": NotifyWatchdog,
		"status":   func() error { return NotifyStatus("idle") },
	} {
		if err := notify(); err != nil {
			t.Errorf("%s: expected no error outside systemd, got %v", name, err)
		}
	}
}

func TestWatchdogIntervalDisabled(t *testing.T) {
	t.Setenv("WATCHDOG_USEC", "")
	t.Setenv("WATCHDOG_PID", "")

	if got := WatchdogInterval(); got != 0 {
		t.Errorf("Expected 0, got %v", got)
	}
}
