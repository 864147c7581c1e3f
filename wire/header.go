package wire

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Param is one C parameter of an entry point
type Param struct {
	Type string
	Name string
}

// EntryPoint is one exported C function of the bridge
type EntryPoint struct {
	Name    string
	Returns string
	Params  []Param
}

// HeaderOptions controls header rendering
type HeaderOptions struct {
	// AssertPtrSize, when non-zero, adds static assertions that the C compiler
	// lays every shape out exactly as NewCatalog(AssertPtrSize) does.
	AssertPtrSize uint32

	// TypesOnly stops after the type declarations. cgo preambles use it,
	// since cgo declares the exported functions itself.
	TypesOnly bool
}

// cTypes maps field kinds that are not pointers to their C type
var cTypes = map[Kind]string{
	KindI32:  "int32_t",
	KindBool: "bool",
}

// Header renders the C header for Declarations and the given entry points
func Header(w io.Writer, entries []EntryPoint, opts HeaderOptions) error {
	bw := bufio.NewWriter(w)

	bw.WriteString("#include <stdbool.h>\n")
	if opts.AssertPtrSize != 0 {
		bw.WriteString("#include <stddef.h>\n")
	}
	bw.WriteString("#include <stdint.h>\n")
	bw.WriteString("#include <stdlib.h>\n\n")

	bw.WriteString("typedef int64_t DartPort;\n\n")
	bw.WriteString("typedef bool (*DartPostCObjectFnType)(DartPort port_id, void *message);\n\n")

	for _, decl := range Declarations {
		fmt.Fprintf(bw, "typedef struct %s {\n", decl.Name)

		for _, f := range decl.Fields {
			if f.Kind == KindPtr {
				fmt.Fprintf(bw, "  %s *%s;\n", f.Pointee, f.Name)
			} else {
				fmt.Fprintf(bw, "  %s %s;\n", cTypes[f.Kind], f.Name)
			}
		}

		fmt.Fprintf(bw, "} %s;\n\n", decl.Name)
	}

	if opts.AssertPtrSize != 0 {
		writeAsserts(bw, NewCatalog(opts.AssertPtrSize))
	}

	if opts.TypesOnly {
		return flush(bw)
	}

	for _, e := range entries {
		fmt.Fprintf(bw, "%s;\n\n", prototype(e))
	}

	bw.WriteString("static int64_t dummy_method_to_enforce_bundling(void) {\n")
	bw.WriteString("    int64_t dummy_var = 0;\n")

	for _, e := range entries {
		fmt.Fprintf(bw, "    dummy_var ^= ((int64_t) (void*) %s);\n", e.Name)
	}

	bw.WriteString("    return dummy_var;\n")
	bw.WriteString("}\n")

	return flush(bw)
}

func flush(bw *bufio.Writer) error {
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, "failed to Flush")
	}

	return nil
}

func writeAsserts(bw *bufio.Writer, c *Catalog) {
	fmt.Fprintf(bw, "_Static_assert(sizeof(void *) == %d, \"pointer width\");\n", c.PtrSize)

	for _, decl := range Declarations {
		l := c.Layout(decl.Name)

		fmt.Fprintf(bw, "_Static_assert(sizeof(%s) == %d, \"%s size\");\n", l.Name, l.Size, l.Name)

		for _, f := range l.Fields {
			fmt.Fprintf(bw, "_Static_assert(offsetof(%s, %s) == %d, \"%s.%s offset\");\n", l.Name, f.Name, f.Offset, l.Name, f.Name)
		}
	}

	bw.WriteString("\n")
}

func prototype(e EntryPoint) string {
	params := "void"

	if len(e.Params) > 0 {
		decls := make([]string, len(e.Params))
		for i, p := range e.Params {
			decls[i] = cDecl(p.Type, p.Name)
		}

		params = strings.Join(decls, ", ")
	}

	return fmt.Sprintf("%s(%s)", cDecl(e.Returns, e.Name), params)
}

// cDecl joins a C type and a name, attaching pointer stars to the name
func cDecl(typ, name string) string {
	if strings.HasSuffix(typ, "*") {
		return typ + name
	}

	return typ + " " + name
}
