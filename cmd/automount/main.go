// SteamOS Automount
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of SteamOS Automount.
//
// SteamOS Automount is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SteamOS Automount is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with SteamOS Automount.  If not, see <http://www.gnu.org/licenses/>.

//go:build linux

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ZaparooProject/steamos-automount/pkg/automount"
	"github.com/ZaparooProject/steamos-automount/pkg/blockdev"
	"github.com/ZaparooProject/steamos-automount/pkg/config"
	"github.com/ZaparooProject/steamos-automount/pkg/helpers"
	"github.com/ZaparooProject/steamos-automount/pkg/helpers/command"
	"github.com/ZaparooProject/steamos-automount/pkg/mounter"
	"github.com/ZaparooProject/steamos-automount/pkg/steam"
	"github.com/ZaparooProject/steamos-automount/pkg/udisks"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	os.Exit(run())
}

func usage() {
	_, _ = fmt.Fprintf(os.Stderr,
		"Usage: %s [flags] {mount|unmount|retrigger} <device>\n", config.AppName)
	flag.PrintDefaults()
}

func run() int {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("SteamOS Automount v%s\n", config.AppVersion)
		return 0
	}

	args := flag.Args()
	if len(args) != 2 {
		usage()
		return automount.StatusUsage.ExitCode()
	}
	action, err := automount.ParseAction(args[0])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		usage()
		return automount.StatusUsage.ExitCode()
	}
	deviceName := args[1]

	// Logging degrades to stderr only; an unwritable log directory must
	// not stop a mount.
	if err := helpers.InitLogging(config.DefaultLogDir(), []io.Writer{os.Stderr}); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: failed to set up logging: %s\n", err)
	}

	defer func() {
		if err := recover(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", err)
			log.Fatal().Msgf("panic: %v", err)
		}
	}()

	cfg, err := config.NewConfig(config.DefaultConfigDir(), config.BaseDefaults)
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		return automount.StatusError.ExitCode()
	}

	if cfg.DebugLogging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	udisksClient := &udisks.Client{}
	defer udisksClient.Close()

	executor := &command.RealExecutor{}
	probe := blockdev.NewProbe(udisksClient)
	mountSvc := mounter.NewService(cfg, probe, udisksClient, executor)
	notifier := steam.NewNotifier(cfg, probe, &steam.GopsutilFinder{}, executor)
	dispatcher := automount.NewDispatcher(cfg, probe, mountSvc, notifier)

	// One invocation handles one device event and runs to completion;
	// udev terminates the process if it overstays.
	status := dispatcher.Run(context.Background(), action, deviceName)
	log.Info().
		Str("status", status.String()).
		Int("exit", status.ExitCode()).
		Msg("invocation finished")
	return status.ExitCode()
}
