package view

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want View
		ok   bool
	}{
		{"#/transmit", Transmit, true},
		{"/command", Command, true},
		{"config", Config, true},
		{" #/command ", Command, true},
		{"", "", false},
		{"#/", "", false},
		{"#/admin", "", false},
		{"Transmit", "", false},
	}
	for _, tt := range tests {
		got, ok := Parse(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Parse(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSelectorDefaultsToConfig(t *testing.T) {
	if got := NewSelector("").Current(); got != Config {
		t.Errorf("Current() = %q, want config", got)
	}
	if got := NewSelector("#/bogus").Current(); got != Config {
		t.Errorf("Current() = %q, want config", got)
	}
	if got := NewSelector("#/transmit").Current(); got != Transmit {
		t.Errorf("Current() = %q, want transmit", got)
	}
}

func TestSelectorNavigate(t *testing.T) {
	s := NewSelector("")
	var seen []View
	s.OnChange(func(v View) { seen = append(seen, v) })

	if !s.Navigate("#/command") {
		t.Error("Navigate(command) reported no change")
	}
	if s.Navigate("#/nowhere") {
		t.Error("unknown indicator changed the view")
	}
	if s.Current() != Command {
		t.Errorf("Current() = %q, want command", s.Current())
	}
	if s.Navigate("command") {
		t.Error("navigating to the current view reported a change")
	}
	if len(seen) != 1 || seen[0] != Command {
		t.Errorf("OnChange saw %v", seen)
	}
}

func TestSelectorHandlersAddedDuringChange(t *testing.T) {
	s := NewSelector("config")
	var first, late []View
	s.OnChange(func(v View) {
		first = append(first, v)
		if len(first) == 1 {
			s.OnChange(func(v View) { late = append(late, v) })
		}
	})

	s.Navigate("transmit")
	s.Navigate("command")

	if len(first) != 2 {
		t.Errorf("first handler saw %v", first)
	}
	if len(late) != 1 || late[0] != Command {
		t.Errorf("late handler saw %v, want [command]", late)
	}
}

func TestTransmitLink(t *testing.T) {
	tests := []struct {
		origin, path, want string
	}{
		{"http://localhost:8080", "/", "http://localhost:8080/#/transmit"},
		{"http://painel.local/", "/senhas/index.html", "http://painel.local/senhas/index.html#/transmit"},
		{"http://painel.local", "/?x=1#/command", "http://painel.local/#/transmit"},
	}
	for _, tt := range tests {
		if got := TransmitLink(tt.origin, tt.path); got != tt.want {
			t.Errorf("TransmitLink(%q, %q) = %q, want %q", tt.origin, tt.path, got, tt.want)
		}
	}
}
