package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-rehearse/midi"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	name := ""
	if len(os.Args) > 2 {
		name = os.Args[2]
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "monitor":
		monitor(name)
	case "scale":
		playScale(name)
	case "poll":
		pollDevices()
	default:
		usage()
	}
}

func usage() {
	fmt.Println("MIDI Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list            - List all MIDI ports")
	fmt.Println("  monitor [name]  - Print key presses from a keyboard")
	fmt.Println("  scale [name]    - Play a C major scale on an output")
	fmt.Println("  poll            - Poll for device changes")
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	ins, outs, err := midi.Ports(midi.PortTimeout)
	if err != nil {
		fmt.Println("\nTIMEOUT! The MIDI service is hung.")
		fmt.Println("Fix (macOS): sudo killall coreaudiod midiserver")
		return
	}
	for i, p := range ins {
		fmt.Printf("  %d: %s\n", i, p.String())
	}
	fmt.Println("\n=== MIDI Output Ports ===")
	for i, p := range outs {
		fmt.Printf("  %d: %s\n", i, p.String())
	}
}

func monitor(name string) {
	kb, err := midi.OpenKeyboard(name, nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer kb.Close()

	fmt.Printf("Listening on %s. Ctrl+C to exit.\n", kb.ID())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)

	for {
		select {
		case ev, ok := <-kb.NoteEvents():
			if !ok {
				return
			}
			state := "up  "
			if ev.On {
				state = "down"
			}
			fmt.Printf("[%s] %s note=%3d vel=%3d ch=%d\n",
				time.Now().Format("15:04:05.000"), state, ev.Note, ev.Velocity, ev.Channel)
		case <-sig:
			return
		}
	}
}

func playScale(name string) {
	out, err := midi.OpenOutput(name)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer out.Close()

	fmt.Printf("Using output: %s\n", out.Name())

	for _, key := range []uint8{60, 62, 64, 65, 67, 69, 71, 72} {
		if err := out.Send(gomidi.NoteOn(0, key, 90)); err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		time.Sleep(250 * time.Millisecond)
		out.Send(gomidi.NoteOff(0, key))
	}

	fmt.Println("Done!")
}

func pollDevices() {
	fmt.Println("Polling for device changes every 2 seconds...")
	fmt.Println("Connect/disconnect a keyboard to test. Ctrl+C to exit.")

	lastIn := ""
	lastOut := ""

	for {
		ins, outs, err := midi.Ports(midi.PortTimeout)
		if err != nil {
			fmt.Printf("[%s] %v\n", time.Now().Format("15:04:05"), err)
			time.Sleep(2 * time.Second)
			continue
		}

		var inNames, outNames []string
		for _, p := range ins {
			inNames = append(inNames, p.String())
		}
		for _, p := range outs {
			outNames = append(outNames, p.String())
		}

		currentIn := strings.Join(inNames, ",")
		currentOut := strings.Join(outNames, ",")

		if currentIn != lastIn || currentOut != lastOut {
			fmt.Printf("\n[%s] Device change detected!\n", time.Now().Format("15:04:05"))
			fmt.Printf("  Inputs: %v\n", inNames)
			fmt.Printf("  Outputs: %v\n", outNames)

			lastIn = currentIn
			lastOut = currentOut
		}

		time.Sleep(2 * time.Second)
	}
}
