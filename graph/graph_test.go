package graph_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/wire/astmod"
	"github.com/sarchlab/wire/graph"
	"github.com/sarchlab/wire/wireerr"
)

var _ = Describe("Builder", func() {
	It("lowers a bare nand module", func() {
		m := astmod.Module{
			Name:    "m",
			Inputs:  []astmod.Port{{Name: "a", Width: 1}, {Name: "b", Width: 1}},
			Outputs: []astmod.Port{{Name: "out", Width: 1}},
			Statements: []astmod.Statement{
				{Target: "out", Expr: astmod.Call("nand", astmod.Ident("a"), astmod.Ident("b"))},
			},
		}

		graphs, err := graph.NewBuilder([]astmod.Module{m}).BuildAll([]astmod.Module{m})
		Expect(err).NotTo(HaveOccurred())

		g, ok := graphs["m"]
		Expect(ok).To(BeTrue())
		Expect(g.Widths["out"]).To(Equal(1))

		var outNode *graph.Node
		for i := range g.Nodes {
			if g.Nodes[i].Out == "out" {
				outNode = &g.Nodes[i]
			}
		}
		Expect(outNode).NotTo(BeNil())
		Expect(outNode.Kind).To(Equal(graph.KindNand))
		Expect(outNode.Args).To(Equal([]string{"a", "b"}))
	})

	It("defaults unspecified port widths to 1", func() {
		m := astmod.Module{
			Name:    "m",
			Inputs:  []astmod.Port{{Name: "a"}},
			Outputs: []astmod.Port{{Name: "out"}},
			Statements: []astmod.Statement{
				{Target: "out", Expr: astmod.Ident("a")},
			},
		}
		graphs, err := graph.NewBuilder([]astmod.Module{m}).BuildAll([]astmod.Module{m})
		Expect(err).NotTo(HaveOccurred())
		Expect(graphs["m"].Widths["a"]).To(Equal(1))
	})

	It("widens an untyped literal to the narrowest width that fits it", func() {
		m := astmod.Module{
			Name:    "m",
			Outputs: []astmod.Port{{Name: "out", Width: 8}},
			Statements: []astmod.Statement{
				{Target: "out", Expr: astmod.Lit(200, 0)},
			},
		}
		graphs, err := graph.NewBuilder([]astmod.Module{m}).BuildAll([]astmod.Module{m})
		Expect(err).NotTo(HaveOccurred())
		Expect(graphs["m"].Widths["out"]).To(Equal(8))
	})

	It("rejects mismatched nand operand widths", func() {
		m := astmod.Module{
			Name:    "m",
			Inputs:  []astmod.Port{{Name: "a", Width: 1}, {Name: "b", Width: 4}},
			Outputs: []astmod.Port{{Name: "out", Width: 1}},
			Statements: []astmod.Statement{
				{Target: "out", Expr: astmod.Call("nand", astmod.Ident("a"), astmod.Ident("b"))},
			},
		}
		_, err := graph.NewBuilder([]astmod.Module{m}).BuildAll([]astmod.Module{m})
		Expect(err).To(HaveOccurred())
		Expect(wireerr.CodeOf(err)).To(Equal(wireerr.InvalidWidth))
	})

	It("rejects an empty module batch", func() {
		_, err := graph.NewBuilder(nil).BuildAll(nil)
		Expect(err).To(HaveOccurred())
		Expect(wireerr.CodeOf(err)).To(Equal(wireerr.NoModules))
	})

	It("does not fail on a call to an undefined module", func() {
		m := astmod.Module{
			Name:    "m",
			Inputs:  []astmod.Port{{Name: "a", Width: 1}},
			Outputs: []astmod.Port{{Name: "out", Width: 1}},
			Statements: []astmod.Statement{
				{Target: "c", Expr: astmod.Call("missing", astmod.Ident("a"))},
				{Target: "out", Expr: astmod.Member(astmod.Ident("c"), "z")},
			},
		}
		_, err := graph.NewBuilder([]astmod.Module{m}).BuildAll([]astmod.Module{m})
		Expect(err).NotTo(HaveOccurred())
	})

	It("resolves an alias chain to its terminal width", func() {
		m := astmod.Module{
			Name:    "m",
			Inputs:  []astmod.Port{{Name: "a", Width: 4}},
			Outputs: []astmod.Port{{Name: "out", Width: 4}},
			Statements: []astmod.Statement{
				{Target: "mid", Expr: astmod.Ident("a")},
				{Target: "out", Expr: astmod.Ident("mid")},
			},
		}
		graphs, err := graph.NewBuilder([]astmod.Module{m}).BuildAll([]astmod.Module{m})
		Expect(err).NotTo(HaveOccurred())
		w, ok := graphs["m"].ResolveWidth("out")
		Expect(ok).To(BeTrue())
		Expect(w).To(Equal(4))
	})
})
