package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gomodsec/hexdump"
	"gomodsec/module"
	"gomodsec/pelib"
	"gomodsec/process"
	"gomodsec/process_blob"
	"gomodsec/process_finder"
	"gomodsec/table"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/dustin/go-humanize"
)

var log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "modsections"))

type options struct {
	mode        pelib.FileType
	filter      string
	verbose     bool
	dumpHeaders bool
	parseOption []pelib.Option
}

func main() {
	pidFlag := flag.Int("pid", 0, "Process ID to inspect")
	nameFlag := flag.String("name", "", "Process name to inspect (lowest PID wins)")
	fileFlag := flag.String("file", "", "PE file on disk to inspect instead of a process")
	modeFlag := flag.String("mode", "", "Image layout: image or data (default image for processes, data for -file)")
	moduleFlag := flag.String("module", "", "Only show modules whose name contains this text (case-insensitive)")
	maxSectionsFlag := flag.Uint("max-sections", pelib.DefaultMaxSections, "Reject images declaring more sections")
	maxHeaderFlag := flag.Uint("max-header", pelib.DefaultMaxHeaderOffset, "Reject images whose NT headers start further in")
	verboseFlag := flag.Bool("v", false, "Print section addresses, sizes and characteristics")
	dumpFlag := flag.Bool("dump-headers", false, "Hex dump the header block of each image")
	flag.Parse()

	sources := 0
	for _, set := range []bool{*pidFlag != 0, *nameFlag != "", *fileFlag != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		fmt.Println("Error: exactly one of --pid, --name or --file is required")
		flag.Usage()
		os.Exit(1)
	}
	if *maxSectionsFlag > 0xFFFF || *maxHeaderFlag > 0xFFFFFFFF {
		fmt.Println("Error: --max-sections or --max-header out of range")
		os.Exit(1)
	}

	mode := pelib.FileTypeImage
	if *fileFlag != "" {
		mode = pelib.FileTypeData
	}
	if *modeFlag != "" {
		var err error
		if mode, err = pelib.ParseFileType(*modeFlag); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	}

	opts := options{
		mode:        mode,
		filter:      strings.ToLower(*moduleFlag),
		verbose:     *verboseFlag,
		dumpHeaders: *dumpFlag,
		parseOption: []pelib.Option{
			pelib.WithMaxSections(uint16(*maxSectionsFlag)),
			pelib.WithMaxHeaderOffset(uint32(*maxHeaderFlag)),
			pelib.WithLogger(log),
		},
	}

	if *fileFlag != "" {
		if err := inspectFile(*fileFlag, opts); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	proc, err := attach(*pidFlag, *nameFlag)
	if err != nil {
		fmt.Printf("Error attaching to process: %v\n", err)
		os.Exit(1)
	}
	err = inspectProcess(proc, opts)
	proc.Close()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func attach(pid int, name string) (process.Process, error) {
	if pid != 0 {
		return getProcess(process.ProcessID(pid))
	}
	return process.OpenProcessByName(process_finder.NewProcessFinder(), getProcess, name)
}

func inspectProcess(proc process.Process, opts options) error {
	path, err := proc.Path()
	if err != nil {
		log.Warn("Failed to query executable path: ", err)
	}
	fmt.Printf("Process %d: %s", proc.GetPID(), path)
	if w, ok := proc.(interface{ IsWoW64() bool }); ok && w.IsWoW64() {
		fmt.Print(" (WoW64)")
	}
	fmt.Println()

	failed := 0
	for mod, err := range module.Enumerate(proc) {
		if err != nil {
			return fmt.Errorf("enumerating modules: %w", err)
		}
		if opts.filter != "" && !strings.Contains(strings.ToLower(mod.Name), opts.filter) {
			continue
		}

		printModule(mod)
		parseOpts := append([]pelib.Option{pelib.WithImageSize(mod.Size)}, opts.parseOption...)
		err = printSections(proc, mod.Base, opts, parseOpts)
		switch {
		case err == nil, errors.Is(err, pelib.ErrInvalidImageSignature):
		default:
			failed++
			log.Warn("Module ", mod.Name, ": ", err)
		}
	}

	if failed > 0 {
		fmt.Printf("\n%d module(s) could not be parsed\n", failed)
	}
	return nil
}

func inspectFile(filename string, opts options) error {
	blob, err := process_blob.NewProcessBlobFromFile(0, filename)
	if err != nil {
		return err
	}

	printModule(process.Module{Base: blob.Base(), Size: blob.Size(), Name: filename, Path: filename})
	parseOpts := append([]pelib.Option{pelib.WithImageSize(blob.Size())}, opts.parseOption...)
	return printSections(blob, blob.Base(), opts, parseOpts)
}

func printModule(mod process.Module) {
	fmt.Println("")
	fmt.Println("Base: " + mod.Base.ToString())
	fmt.Printf("Size: 0x%X (%s)\n", uint64(mod.Size), humanize.IBytes(uint64(mod.Size)))
	fmt.Println("Name: " + mod.Name)
	fmt.Println("Path: " + mod.Path)
}

// printSections prints what it can; sections listed before a failure are kept.
func printSections(r process.ImageReader, base process.ProcessMemoryAddress, opts options, parseOpts []pelib.Option) error {
	pf, err := pelib.Open(r, base, opts.mode, parseOpts...)
	if err != nil {
		if errors.Is(err, pelib.ErrInvalidImageSignature) {
			fmt.Println("  (not a PE image)")
		}
		return err
	}

	if opts.dumpHeaders {
		dumpHeaders(r, pf)
	}
	if opts.verbose {
		fh := pf.FileHeader()
		fmt.Printf("  %s %s, %d sections, SizeOfImage 0x%X, TimeDateStamp 0x%08X\n",
			pf.MachineName(), peKind(pf), fh.NumberOfSections, pf.SizeOfImage(), fh.TimeDateStamp)
		printTlsCallbacks(pf)
	}

	if opts.verbose {
		return printSectionTable(os.Stdout, pf)
	}

	for section, err := range pf.Sections() {
		if err != nil {
			return fmt.Errorf("section table: %w", err)
		}
		fmt.Println("")
		fmt.Println("Name: " + section.Name)
	}
	return nil
}

func printSectionTable(w io.Writer, pf *pelib.PeFile) error {
	tbl := table.New(
		table.ColumnSpec{Header: "Name", MinWidth: 8},
		table.ColumnSpec{Header: "Address", AlignRight: true},
		table.ColumnSpec{Header: "VirtualSize", AlignRight: true},
		table.ColumnSpec{Header: "RawOffset", AlignRight: true},
		table.ColumnSpec{Header: "RawSize", AlignRight: true},
		table.ColumnSpec{Header: "Characteristics"},
	)

	var tableErr error
	for section, err := range pf.Sections() {
		if err != nil {
			tableErr = fmt.Errorf("section table: %w", err)
			break
		}
		addr, err := pf.RvaToVa(section.VirtualAddress)
		address := ""
		if err == nil {
			address = addr.ToString()
		}
		tbl.AddRow(
			section.Name,
			address,
			fmt.Sprintf("0x%X", section.VirtualSize),
			fmt.Sprintf("0x%X", section.RawOffset),
			fmt.Sprintf("0x%X", section.RawSize),
			section.Characteristics.String(),
		)
	}

	fmt.Fprintln(w, "")
	if err := tbl.Render(w); err != nil {
		return err
	}
	return tableErr
}

// printTlsCallbacks lists the TLS callbacks of images that declare a TLS directory.
func printTlsCallbacks(pf *pelib.PeFile) {
	td, err := pelib.OpenTlsDir(pf)
	if errors.Is(err, pelib.ErrDataDirectoryAbsent) {
		return
	}
	if err != nil {
		log.Warn("TLS directory at ", pf.Base().ToString(), ": ", err)
		return
	}

	fmt.Printf("  TLS directory at %s\n", td)
	for callback, err := range td.Callbacks() {
		if err != nil {
			log.Warn("TLS callbacks: ", err)
			return
		}
		fmt.Printf("    callback 0x%X\n", callback)
	}
}

func peKind(pf *pelib.PeFile) string {
	if pf.Is64() {
		return "PE32+"
	}
	return "PE32"
}

const maxHeaderDump = 0x400

func dumpHeaders(r process.ImageReader, pf *pelib.PeFile) {
	size := min(uint64(pf.SizeOfHeaders()), maxHeaderDump)
	if size == 0 {
		return
	}
	data, err := r.ReadMemory(pf.Base(), process.ProcessMemorySize(size))
	if err != nil {
		log.Warn("Failed to read headers at ", pf.Base().ToString(), ": ", err)
		return
	}

	options := hexdump.DefaultOptions()
	options.StartAddress = uint64(pf.Base())
	options.Highlight = [][]byte{[]byte("MZ"), []byte("PE\x00\x00")}
	hexdump.DumpToWriter(os.Stdout, data, options)
}
