// Command sbscanctl is a command line client for the sbscand control
// protocol. It connects over TCP, issues a single request, and prints the
// reply in a human readable form.
//
// Usage:
//
//	sbscanctl [-addr host:port] ping
//	sbscanctl [-addr host:port] echo <text>
//	sbscanctl [-addr host:port] start | stop
//	sbscanctl [-addr host:port] latest
//	sbscanctl [-addr host:port] latest-for <device-id>
//	sbscanctl [-addr host:port] [-interval 1s] watch
package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sbkit/sbscan/proto"
	"github.com/sbkit/sbscan/sensor"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:5900", "sbscand control address")
	interval := flag.Duration("interval", time.Second, "poll interval for watch")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	client, err := proto.Dial(*addr)
	if err != nil {
		fatalf("connect %s: %v", *addr, err)
	}
	defer client.Close()

	if err := run(client, args, *interval); err != nil {
		fatalf("%s: %v", args[0], err)
	}
}

func run(client *proto.Client, args []string, interval time.Duration) error {
	switch args[0] {
	case "ping":
		if err := client.Ping(); err != nil {
			return err
		}
		fmt.Println("PONG")

	case "echo":
		if len(args) < 2 {
			return fmt.Errorf("echo needs a text argument")
		}
		reply, err := client.Echo([]byte(args[1]))
		if err != nil {
			return err
		}
		fmt.Println(string(reply))

	case "start":
		if err := client.StartRadio(); err != nil {
			return err
		}
		fmt.Println("radio started")

	case "stop":
		if err := client.StopRadio(); err != nil {
			return err
		}
		fmt.Println("radio stopped")

	case "latest":
		rec, err := client.Latest()
		if err != nil {
			return err
		}
		printRecord(rec)

	case "latest-for":
		if len(args) < 2 {
			return fmt.Errorf("latest-for needs a device id argument")
		}
		id, err := parseDeviceID(args[1])
		if err != nil {
			return err
		}
		rec, err := client.LatestFor(id)
		if err != nil {
			return err
		}
		printRecord(rec)

	case "watch":
		return watch(client, interval)

	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}

	return nil
}

// watch polls the latest merged record and prints it whenever it changes.
// A not-data-yet reply just means nothing has merged, so polling continues.
func watch(client *proto.Client, interval time.Duration) error {
	var last []byte

	for {
		rec, err := client.Latest()
		switch {
		case errors.Is(err, proto.ErrNoData):
			// keep polling
		case err != nil:
			return err
		default:
			cur := append(rec.Addr[:], rec.Service...)
			cur = append(cur, rec.Manufacturer...)
			if !bytes.Equal(cur, last) {
				last = cur
				fmt.Println(time.Now().Format(time.RFC3339))
				printRecord(rec)
				fmt.Println()
			}
		}

		time.Sleep(interval)
	}
}

// parseDeviceID accepts both decimal and 0x-prefixed hexadecimal ids.
func parseDeviceID(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("bad device id %q: %w", s, err)
	}

	return uint16(v), nil
}

func printRecord(rec proto.Record) {
	fmt.Printf("addr:         %s\n", rec.Addr)
	fmt.Printf("rssi:         %d dBm\n", rec.RSSI)
	if len(rec.Manufacturer) >= 8 {
		fmt.Printf("device id:    0x%04X\n", uint16(rec.Manufacturer[6])<<8|uint16(rec.Manufacturer[7]))
	}
	fmt.Printf("service:      %s\n", hex.EncodeToString(rec.Service))
	fmt.Printf("manufacturer: %s\n", hex.EncodeToString(rec.Manufacturer))

	reading, err := sensor.Decode(rec.Service)
	if err != nil {
		return
	}

	switch r := reading.(type) {
	case sensor.Meter:
		fmt.Printf("meter:        %.1f°C %d%% RH, battery %d%%\n", r.Temperature, r.Humidity, r.Battery)
	case sensor.Bot:
		fmt.Printf("bot:          on=%v, battery %d%%\n", r.On, r.Battery)
	case sensor.Motion:
		fmt.Printf("motion:       detected=%v, battery %d%%\n", r.Detected, r.Battery)
	case sensor.Contact:
		fmt.Printf("contact:      open=%v motion=%v, battery %d%%\n", r.Open, r.MotionDetected, r.Battery)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: sbscanctl [-addr host:port] <ping|echo|start|stop|latest|latest-for|watch> [args]")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
