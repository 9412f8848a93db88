package main

import (
	"context"
	"flag"

	"golang.org/x/xerrors"

	"github.com/mos9527/mages-tools/internal/archive"
)

const mpkHelp = `magespack mpk [-flags]

MAGES. PacK - MPK Unpacker/Repacker
Tested against STEINS;GATE Steam & STEINS;GATE 0 Steam MPK files

Note:
  - Unpacked files are named by their entry id in hex, followed by their
    stored filename (e.g. 0x1e_phone_rine.dds).

Usage:
  unpacking: magespack mpk -o <outdir> -i <.mpk input file>
  repacking: magespack mpk -o <outdir> -r <.mpk repacked output>
`

func mpkCmd(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("mpk", flag.ExitOnError)
	fset.Usage = usage(fset, mpkHelp)
	var outdir, infile, repack string
	fset.StringVar(&outdir, "o", "", "directory to unpack into, or to read files from when repacking")
	fset.StringVar(&outdir, "outdir", "", "directory to unpack into, or to read files from when repacking")
	fset.StringVar(&infile, "i", "", "input .mpk file to unpack")
	fset.StringVar(&infile, "infile", "", "input .mpk file to unpack")
	fset.StringVar(&repack, "r", "", "output .mpk file to repack -outdir into")
	fset.StringVar(&repack, "repack", "", "output .mpk file to repack -outdir into")
	fset.Parse(args)

	if outdir == "" || (infile == "" && repack == "") {
		fset.Usage()
		return xerrors.New("mpk: -outdir and one of -infile or -repack are required")
	}
	if repack != "" {
		return archive.PackMPK(outdir, repack)
	}
	return archive.UnpackMPK(infile, outdir)
}
