package main

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/born-ml/vision/internal/serialization"
)

func runInspect(args []string, stdout io.Writer) error {
	fs := newFlagSet("inspect")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("inspect: no files given")
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	for _, path := range fs.Args() {
		var err error
		switch strings.ToLower(filepath.Ext(path)) {
		case ".bvt":
			err = inspectBVT(tw, path)
		case ".safetensors":
			err = inspectSafeTensors(tw, path)
		default:
			err = fmt.Errorf("inspect: unknown file type %s", path)
		}
		if err != nil {
			return err
		}
	}
	return tw.Flush()
}

func inspectBVT(w io.Writer, path string) error {
	h, err := serialization.Stat(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s\n", path)
	fmt.Fprintf(w, "  dtype\t%s\n", h.DType)
	fmt.Fprintf(w, "  shape\t%v\n", h.Shape)
	fmt.Fprintf(w, "  strides\t%v\n", h.Strides)
	fmt.Fprintf(w, "  size\t%d bytes\n", h.Size)
	fmt.Fprintf(w, "  creator\t%s\n", h.Creator)
	if !h.CreatedAt.IsZero() {
		fmt.Fprintf(w, "  created\t%s\n", h.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	}
	for _, k := range slices.Sorted(maps.Keys(h.Metadata)) {
		fmt.Fprintf(w, "  meta.%s\t%s\n", k, h.Metadata[k])
	}
	return nil
}

func inspectSafeTensors(w io.Writer, path string) error {
	f, err := serialization.ReadSafeTensors(path, serialization.ReaderOptions{})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s\n", path)
	for _, name := range f.Names() {
		st := f.Tensors[name]
		fmt.Fprintf(w, "  %s\t%s\t%v\t%d bytes\n", name, st.DType, st.Shape, len(st.Data))
	}
	return nil
}
