package pop

import "testing"

func TestParsing(t *testing.T) {
	t.Run("valid command", func(t *testing.T) {
		cmd, err := parseCommand("retr 12\r\n")
		if err != nil {
			t.Fatal(err)
		}
		if cmd.Name != "RETR" {
			t.Fatalf("RETR expected as the command, got %q", cmd.Name)
		}
		if cmd.Arg != "12" {
			t.Fatalf("12 expected as the argument, got %q", cmd.Arg)
		}
	})

	t.Run("multi-word argument", func(t *testing.T) {
		cmd, err := parseCommand("TOP 1 10\r\n")
		if err != nil {
			t.Fatal(err)
		}
		if cmd.Arg != "1 10" {
			t.Fatalf("1 10 expected as the argument, got %q", cmd.Arg)
		}
	})

	t.Run("bare command", func(t *testing.T) {
		cmd, err := parseCommand("STAT\r\n")
		if err != nil {
			t.Fatal(err)
		}
		if cmd.Name != "STAT" || cmd.Arg != "" {
			t.Fatalf("unexpected parse: %v", cmd)
		}
	})

	t.Run("invalid command", func(t *testing.T) {
		cmd, err := parseCommand("300-hey-there dude\r\n")
		if err == nil {
			t.Fatalf("expected to fail, got %v", cmd)
		}
	})
}
