/*
 * nanok - Host process entry point.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	getopt "github.com/pborman/getopt/v2"
	"github.com/peterh/liner"

	"github.com/nanok-project/nanok/boot"
	"github.com/nanok-project/nanok/keyboard"
	"github.com/nanok-project/nanok/util/klog"
)

func main() {
	optConfig := getopt.StringLong("config", 'c', "nanok.cfg", "Boot configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var file *os.File
	if *optLogFile != "" {
		var err error
		file, err = os.Create(*optLogFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "creating log file:", err)
			os.Exit(1)
		}
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelInfo)
	logger := slog.New(klog.NewHandler(file, &slog.HandlerOptions{Level: programLevel}, file == nil))
	slog.SetDefault(logger)

	logger.Info("nanok starting")

	if _, err := os.Stat(*optConfig); os.IsNotExist(err) {
		logger.Error("configuration file not found", "path", *optConfig)
		os.Exit(1)
	}

	machine := boot.New(logger)
	if err := machine.Boot(*optConfig); err != nil {
		logger.Error("boot failed", "error", err)
		os.Exit(1)
	}
	machine.InstallDefaultUtilities()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	console := attachConsole(logger)
	defer console.Close()

loop:
	for {
		select {
		case <-sigChan:
			logger.Info("received interrupt, shutting down")
			break loop
		case sig := <-machine.Signals:
			switch sig {
			case boot.SignalReboot:
				logger.Info("rebooting")
				if err := machine.Boot(*optConfig); err != nil {
					logger.Error("reboot failed", "error", err)
					os.Exit(1)
				}
			case boot.SignalPowerOff:
				logger.Info("powering off")
				break loop
			}
		}
	}

	logger.Info("nanok halted")
}

// attachConsole wires a host-terminal line editor to the simulated PS/2
// keyboard's character ring, standing in for the physical console a real
// boot would read scancodes from.
func attachConsole(logger *slog.Logger) *liner.State {
	logger.Info("attaching host console to simulated keyboard")
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)

	go func() {
		for {
			line, err := state.Prompt("")
			if err != nil {
				return
			}
			for i := 0; i < len(line); i++ {
				keyboard.InjectByte(line[i])
			}
			keyboard.InjectByte('\n')
			state.AppendHistory(line)
		}
	}()

	return state
}
