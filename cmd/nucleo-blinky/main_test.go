//go:build !stm32l0

package main

import (
	"bytes"
	"errors"
	"testing"

	"tinygo.org/x/drivers/shtc3"

	"nucleo-go/errcode"
	"nucleo-go/internal/hwsim"
)

type fakeBus struct {
	target hwsim.Target
	err    error
}

func (f *fakeBus) Tx(addr uint16, w, r []byte) error {
	if f.err != nil {
		return f.err
	}
	if addr != hwsim.SHTC3Addr {
		return errcode.NACK
	}
	f.target.Transfer(w, r)
	return nil
}

func TestAppendReading(t *testing.T) {
	sensor := &hwsim.SHTC3{TempMilliC: 21_500, RHx100: 4_250}
	d := shtc3.New(&fakeBus{target: sensor})

	got := string(appendReading(nil, &d, 5))
	// The raw words lose a little precision; only the shape and the
	// integer parts are fixed.
	if len(got) < len("tick=5 temp=21.") || got[:len("tick=5 temp=21.")] != "tick=5 temp=21." {
		t.Fatalf("line = %q", got)
	}
	if got[len(got)-3:] != "%\r\n" {
		t.Fatalf("line ending = %q", got)
	}
}

func TestAppendReadingMapsBusErrors(t *testing.T) {
	d := shtc3.New(&fakeBus{err: &errcode.E{C: errcode.Timeout, Op: "i2c.tx", Err: errors.New("spin")}})
	got := string(appendReading(nil, &d, 10))
	const prefix = "tick=10 err="
	if len(got) <= len(prefix) || got[:len(prefix)] != prefix {
		t.Fatalf("line = %q", got)
	}
	if got == prefix+"ok\r\n" {
		t.Fatalf("error mapped to ok: %q", got)
	}
}

type lineUART struct{ bytes.Buffer }

func (u *lineUART) Buffered() int { return u.Len() }

func TestConsoleReportsToUART(t *testing.T) {
	d := shtc3.New(&fakeBus{target: &hwsim.SHTC3{TempMilliC: -1_000, RHx100: 9_000}})
	u := &lineUART{}
	c := &console{uart: u}
	if err := c.report(&d, 5); err != nil {
		t.Fatal(err)
	}
	if err := c.report(&d, 10); err != nil {
		t.Fatal(err)
	}
	lines := bytes.Split(bytes.TrimSuffix(u.Bytes(), []byte("\r\n")), []byte("\r\n"))
	if len(lines) != 2 {
		t.Fatalf("want 2 lines, got %q", u.String())
	}
	if !bytes.HasPrefix(lines[0], []byte("tick=5 temp=-")) || !bytes.HasPrefix(lines[1], []byte("tick=10 temp=-")) {
		t.Fatalf("lines = %q", lines)
	}
}
