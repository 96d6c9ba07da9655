package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Faultbox/weightfix/pkg/formats"
	"github.com/Faultbox/weightfix/pkg/mesh"
)

var deformTypes = []mesh.DeformType{mesh.BDEF1, mesh.BDEF2, mesh.BDEF4, mesh.SDEF, mesh.QDEF}

func (a *app) cmdInfo(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: info needs exactly one model", errUsage)
	}
	path := args[0]

	var meshes []*mesh.Mesh
	fmt.Fprintf(a.out, "Model:    %s\n", path)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pmx":
		pmx, err := formats.ParsePMXFile(path)
		if err != nil {
			return err
		}
		h := pmx.Header
		fmt.Fprintf(a.out, "Format:   PMX %.1f (%s)\n", h.Version, h.Encoding)
		fmt.Fprintf(a.out, "Name:     %s / %s\n", pmx.Name, pmx.NameEnglish)
		fmt.Fprintf(a.out, "Indices:  vertex %d, bone %d bytes\n", h.VertexIndexSize, h.BoneIndexSize)
		fmt.Fprintf(a.out, "Extra UV: %d\n", h.AdditionalUVs)
		meshes = append(meshes, pmx.Mesh())
	default:
		model, err := formats.OpenModel(path)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Format:   glTF 2.0")
		if g, ok := model.(*formats.GLTF); ok {
			for _, p := range g.Primitives {
				skin := "unskinned"
				if p.Skinned {
					skin = "skinned"
				}
				fmt.Fprintf(a.out, "  %-20s %6d vertices %6d faces  %s\n", p.Name, len(p.Mesh.Vertices), len(p.Mesh.Faces), skin)
			}
		}
		meshes = model.Meshes()
	}

	counts := make(map[mesh.DeformType]int)
	vertices, faces := 0, 0
	for _, m := range meshes {
		vertices += len(m.Vertices)
		faces += len(m.Faces)
		for t, n := range m.CountByDeform() {
			counts[t] += n
		}
	}

	fmt.Fprintf(a.out, "Vertices: %d\n", vertices)
	fmt.Fprintf(a.out, "Faces:    %d\n", faces)
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, "Weights by type:")
	for _, t := range deformTypes {
		if counts[t] > 0 {
			fmt.Fprintf(a.out, "  %-6s %d\n", t, counts[t])
		}
	}
	return nil
}
