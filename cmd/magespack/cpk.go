package main

import (
	"context"
	"flag"

	"golang.org/x/xerrors"

	"github.com/mos9527/mages-tools/internal/archive"
)

const cpkHelp = `magespack cpk [-flags]

CriPacK Unpacker/Repacker
Tested against CHAOS;HEAD NOAH Steam CPK files

Note:
  - Unpacked files are named by their entry id (i.e. 0, 1, 2, ...), which
    must also be the case for files to be repacked.
  - There's a maximum per-file size limit of 2GB. This is an inherent
    limitation coming from CriWare itself.

Usage:
  unpacking: magespack cpk -o <outdir> -i <.cpk input file>
  repacking: magespack cpk -o <outdir> -r <.cpk repacked output>
`

func cpkCmd(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("cpk", flag.ExitOnError)
	fset.Usage = usage(fset, cpkHelp)
	var outdir, infile, repack string
	fset.StringVar(&outdir, "o", "", "directory to unpack into, or to read files from when repacking")
	fset.StringVar(&outdir, "outdir", "", "directory to unpack into, or to read files from when repacking")
	fset.StringVar(&infile, "i", "", "input .cpk file to unpack")
	fset.StringVar(&infile, "infile", "", "input .cpk file to unpack")
	fset.StringVar(&repack, "r", "", "output .cpk file to repack -outdir into")
	fset.StringVar(&repack, "repack", "", "output .cpk file to repack -outdir into")
	fset.Parse(args)

	if outdir == "" || (infile == "" && repack == "") {
		fset.Usage()
		return xerrors.New("cpk: -outdir and one of -infile or -repack are required")
	}
	if repack != "" {
		return archive.PackCPK(outdir, repack)
	}
	return archive.UnpackCPK(infile, outdir)
}
