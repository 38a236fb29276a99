// tandem: a tool for predicting mapping qualities of short-read alignments.
// Copyright (c) 2021 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/tandem/blob/master/LICENSE.txt>.

package cmd

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/exascience/tandem/features"
	"github.com/exascience/tandem/internal"
)

// ParseHelp is the help string for the tandem parse command.
const ParseHelp = "\ntandem parse sam-file [sam-file...]\n" +
	"[--prefix output-prefix]\n" +
	"[--mod-prefix output-prefix]\n" +
	"[--features]\n" +
	"[--input-model]\n" +
	"[--keep-templates]\n" +
	"[--wiggle nr]\n" +
	"[--input-model-size nr]\n" +
	"[--max-fraglen nr]\n" +
	"[--seed nr]\n" +
	"[--log-path path]\n"

// Parse implements the tandem parse command. It reads one or more SAM
// files and writes per-category feature matrices and/or simulation
// template files.
func Parse() error {
	var (
		prefix, modPrefix, logPath              string
		wiggle, inputModelSize, maxFragLen      int
		seed                                    int64
		doFeatures, doInputModel, keepTemplates bool
	)

	var flags flag.FlagSet

	flags.StringVar(&prefix, "prefix", "", "prefix for the feature matrix output files")
	flags.StringVar(&modPrefix, "mod-prefix", "", "prefix for the template output files; defaults to --prefix")
	flags.BoolVar(&doFeatures, "features", false, "write binary feature matrices")
	flags.BoolVar(&doInputModel, "input-model", false, "write simulation template files")
	flags.BoolVar(&keepTemplates, "keep-templates", false, "keep sampled templates in memory and report them")
	flags.IntVar(&wiggle, "wiggle", features.DefaultWiggle, "maximum distance between reported and true position")
	flags.IntVar(&inputModelSize, "input-model-size", features.DefaultInputModelSize, "maximum number of templates kept per category")
	flags.IntVar(&maxFragLen, "max-fraglen", features.DefaultMaxFragLen, "maximum allowed fragment length")
	flags.Int64Var(&seed, "seed", 0, "seed for template sampling")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, ParseHelp)
		os.Exit(1)
	}

	var samFiles []string
	argi := 2
	for argi < len(os.Args) && os.Args[argi][0] != '-' {
		samFiles = append(samFiles, getFilename(os.Args[argi], ParseHelp))
		argi++
	}
	if len(samFiles) == 0 {
		getFilename(os.Args[argi], ParseHelp)
	}

	parseFlags(flags, argi, ParseHelp)

	if modPrefix == "" {
		modPrefix = prefix
	}

	setLogOutput(logPath)

	// sanity checks

	var sanityChecksFailed bool

	for _, name := range samFiles {
		if !checkExist("", name) {
			sanityChecksFailed = true
		}
	}

	if !doFeatures && !doInputModel && !keepTemplates {
		log.Println("Error: Nothing to do; pass at least one of --features, --input-model, or --keep-templates.")
		sanityChecksFailed = true
	}
	if doFeatures && prefix == "" {
		log.Println("Error: Feature output requested without --prefix.")
		sanityChecksFailed = true
	}
	if doInputModel && modPrefix == "" {
		log.Println("Error: Template output requested without --mod-prefix or --prefix.")
		sanityChecksFailed = true
	}
	if doFeatures && prefix != "" {
		for _, tag := range []string{"u", "b", "c", "d"} {
			if !checkCreate("--prefix", prefix+"_rec_"+tag+".npy") ||
				!checkCreate("--prefix", prefix+"_rec_"+tag+".meta") {
				sanityChecksFailed = true
			}
		}
	}
	if doInputModel && modPrefix != "" {
		for _, tag := range []string{"u", "b", "c", "d"} {
			if !checkCreate("--mod-prefix", modPrefix+"_mod_"+tag+".csv") {
				sanityChecksFailed = true
			}
		}
	}
	if wiggle < 0 {
		log.Println("Error: Invalid wiggle: ", wiggle)
		sanityChecksFailed = true
	}
	if inputModelSize <= 0 {
		log.Println("Error: Invalid input-model-size: ", inputModelSize)
		sanityChecksFailed = true
	}
	if maxFragLen <= 0 {
		log.Println("Error: Invalid max-fraglen: ", maxFragLen)
		sanityChecksFailed = true
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, ParseHelp)
		os.Exit(1)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " parse")
	for _, name := range samFiles {
		fmt.Fprint(&command, " ", name)
	}
	if prefix != "" {
		fmt.Fprint(&command, " --prefix ", prefix)
	}
	if modPrefix != "" {
		fmt.Fprint(&command, " --mod-prefix ", modPrefix)
	}
	if doFeatures {
		fmt.Fprint(&command, " --features")
	}
	if doInputModel {
		fmt.Fprint(&command, " --input-model")
	}
	if keepTemplates {
		fmt.Fprint(&command, " --keep-templates")
	}
	fmt.Fprint(&command, " --wiggle ", wiggle)
	fmt.Fprint(&command, " --input-model-size ", inputModelSize)
	fmt.Fprint(&command, " --max-fraglen ", maxFragLen)
	fmt.Fprint(&command, " --seed ", seed)
	if logPath != "" {
		fmt.Fprint(&command, " --log-path ", logPath)
	}

	// executing command

	log.Println("Executing command:\n", command.String())

	extractor := features.NewExtractor(features.Config{
		Wiggle:         wiggle,
		InputModelSize: inputModelSize,
		MaxFragLen:     maxFragLen,
		Seed:           seed,
		Features:       doFeatures,
		InputModel:     doInputModel,
		KeepTemplates:  keepTemplates,
		Prefix:         prefix,
		ModPrefix:      modPrefix,
	})

	var firstErr error
	for _, name := range samFiles {
		log.Printf("Parsing SAM file %v (seed=%v)", name, seed)
		file := internal.FileOpen(name)
		_, err := extractor.Pass(file)
		internal.Close(file)
		if err != nil {
			log.Printf("Error in SAM file %v: %v", name, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	log.Println("Finished parsing SAM")
	if err := extractor.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	extractor.LogTemplates()
	return firstErr
}
