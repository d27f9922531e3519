// Command avro-selftest exercises the driver suite end to end on the host
// simulators: serial ordering through the ring buffers, an LCD init and
// print over the two-wire state machine, display publishing, and a stepper
// move. It exits nonzero when any check fails.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/barskern/avro/lcd"
	"github.com/barskern/avro/segment"
	"github.com/barskern/avro/stepper"
	"github.com/barskern/avro/twi"
	"github.com/barskern/avro/usart"
)

var timeout = flag.Duration("timeout", 5*time.Second, "per-check timeout")

func main() {
	flag.Parse()
	defer glog.Flush()

	pass, fail := 0, 0
	run := func(name string, f func() string) {
		if msg := f(); msg == "" {
			glog.Infof("PASS %s", name)
			pass++
		} else {
			glog.Errorf("FAIL %s: %s", name, msg)
			fail++
		}
	}

	run("serial: blocking sends keep wire order", checkSerialOrdering)
	run("serial: needle take returns the line", checkSerialNeedle)
	run("twi: write transfer reaches the slave", checkTwiWrite)
	run("lcd: init and print over the two-wire bus", checkLcdPrint)
	run("segment: published frame matches writes", checkSegmentPublish)
	run("stepper: scheduled move drains", checkStepperMove)

	glog.Infof("summary: %d passed, %d failed", pass, fail)
	if fail > 0 {
		glog.Flush()
		os.Exit(1)
	}
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(*timeout)
	for !cond() {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
	return true
}

func checkSerialOrdering() string {
	u, wire := usart.NewSim(usart.Config{})
	defer u.Close()

	if err := u.SendString("queued"); err != nil {
		return err.Error()
	}
	for _, c := range []byte("hi") {
		if err := u.SendByteSync(c); err != nil {
			return err.Error()
		}
	}
	if err := u.SendByteSync('!'); err != nil {
		return err.Error()
	}

	if !waitFor(func() bool { return bytes.Equal(wire.Bytes(), []byte("queuedhi!")) }) {
		return fmt.Sprintf("wire holds %q, want %q", wire.Bytes(), "queuedhi!")
	}
	return ""
}

func checkSerialNeedle() string {
	u, _ := usart.NewSim(usart.Config{})
	defer u.Close()

	for _, c := range []byte("set 42\r\nrest") {
		u.Receive(c)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	var scratch [32]byte
	n, err := u.TakeUntilContext(ctx, []byte("\r\n"), scratch[:])
	if err != nil {
		return err.Error()
	}
	if got := string(scratch[:n]); got != "set 42" {
		return fmt.Sprintf("took %q, want %q", got, "set 42")
	}
	return ""
}

func checkTwiWrite() string {
	bus := twi.NewSimBus()
	slave := bus.AddSlave(0x50)
	m := twi.New(bus, twi.Config{})

	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	if err := m.TransferBlocking(0x50, twi.Write, payload); err != nil {
		return err.Error()
	}
	if got := slave.Received(); !bytes.Equal(got, payload) {
		return fmt.Sprintf("slave received % x, want % x", got, payload)
	}
	return ""
}

func checkLcdPrint() string {
	bus := twi.NewSimBus()
	slave := bus.AddSlave(lcd.DefaultAddress)
	m := twi.New(bus, twi.Config{})

	d := lcd.New(m, lcd.DefaultAddress)
	if err := d.Configure(lcd.Config{}); err != nil {
		return err.Error()
	}
	if err := d.Print([]byte("avro ok")); err != nil {
		return err.Error()
	}
	if len(slave.Received()) == 0 {
		return "no expander writes reached the slave"
	}
	return ""
}

func checkSegmentPublish() string {
	d := segment.NewDisplay(4)
	for _, c := range []byte("1234") {
		d.WriteChar(c)
	}
	got := make([]byte, 4)
	d.Snapshot(got)
	if !bytes.Equal(got, []byte("1234")) {
		return fmt.Sprintf("snapshot %q, want %q", got, "1234")
	}

	d.Clear()
	d.Snapshot(got)
	if !bytes.Equal(got, make([]byte, 4)) {
		return fmt.Sprintf("snapshot after clear % x, want zeros", got)
	}
	return ""
}

type nullPort struct{}

func (nullPort) Set(byte) {}

func checkStepperMove() string {
	m := stepper.New(nullPort{})
	r := stepper.NewRunner(m, time.Millisecond)
	defer r.Stop()

	m.Move(-7)
	if !waitFor(func() bool { return m.Pending() == 0 && !m.Running() }) {
		return fmt.Sprintf("%d steps still pending", m.Pending())
	}
	return ""
}
