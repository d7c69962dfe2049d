// Package stl reads and writes stereolithography files
package stl

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/spatial/r3"

	"nodulemesh/pkg/mesh"
)

const headerSize = 80

// Triangle is one facet as stored in an STL file
type Triangle struct {
	Normal  [3]float32
	Vertex1 [3]float32
	Vertex2 [3]float32
	Vertex3 [3]float32
}

// record is the 50-byte binary layout of a facet
type record struct {
	Triangle
	Attribute uint16
}

// Options controls STL output
type Options struct {
	// ASCII writes the text format instead of binary
	ASCII bool
	// Name is the solid name (ASCII) or header text (binary)
	Name string
	// Scale multiplies vertex coordinates per axis; zero means unit scale
	Scale r3.Vec
}

// Triangles converts a mesh to facets with unit face normals
func Triangles(m *mesh.Mesh, scale r3.Vec) []Triangle {
	if scale != (r3.Vec{}) && scale != (r3.Vec{X: 1, Y: 1, Z: 1}) {
		m = &mesh.Mesh{Vertices: append([]r3.Vec(nil), m.Vertices...), Faces: m.Faces}
		m.Scale(scale)
	}

	tris := make([]Triangle, len(m.Faces))
	for i, f := range m.Faces {
		a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		if l := r3.Norm(n); l > 0 {
			n = r3.Scale(1/l, n)
		}
		tris[i] = Triangle{
			Normal:  toFloat32(n),
			Vertex1: toFloat32(a),
			Vertex2: toFloat32(b),
			Vertex3: toFloat32(c),
		}
	}
	return tris
}

func toFloat32(v r3.Vec) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}

func toVec(v [3]float32) r3.Vec {
	return r3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
}

// Write encodes m to w in the format selected by opts
func Write(w io.Writer, m *mesh.Mesh, opts Options) error {
	tris := Triangles(m, opts.Scale)
	if opts.ASCII {
		return WriteASCII(w, opts.Name, tris)
	}
	return WriteBinary(w, opts.Name, tris)
}

// WriteBinary writes facets in binary STL format
func WriteBinary(w io.Writer, name string, tris []Triangle) error {
	bw := bufio.NewWriter(w)

	var header [headerSize]byte
	copy(header[:], name)
	if _, err := bw.Write(header[:]); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(tris))); err != nil {
		return fmt.Errorf("failed to write facet count: %w", err)
	}
	for i := range tris {
		if err := binary.Write(bw, binary.LittleEndian, record{Triangle: tris[i]}); err != nil {
			return fmt.Errorf("failed to write facet %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// WriteASCII writes facets in ASCII STL format
func WriteASCII(w io.Writer, name string, tris []Triangle) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "solid %s\n", name)
	for _, t := range tris {
		fmt.Fprintf(bw, "  facet normal %e %e %e\n", t.Normal[0], t.Normal[1], t.Normal[2])
		fmt.Fprintln(bw, "    outer loop")
		for _, v := range [3][3]float32{t.Vertex1, t.Vertex2, t.Vertex3} {
			fmt.Fprintf(bw, "      vertex %e %e %e\n", v[0], v[1], v[2])
		}
		fmt.Fprintln(bw, "    endloop")
		fmt.Fprintln(bw, "  endfacet")
	}
	fmt.Fprintf(bw, "endsolid %s\n", name)
	return bw.Flush()
}

// Save writes m to path
func Save(path string, m *mesh.Mesh, opts Options) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create STL file: %w", err)
	}
	if err := Write(file, m, opts); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Read decodes a binary STL stream
func Read(r io.Reader) ([]Triangle, error) {
	br := bufio.NewReader(r)

	var header [headerSize]byte
	if _, err := io.ReadFull(br, header[:]); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	var count uint32
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("failed to read facet count: %w", err)
	}

	tris := make([]Triangle, 0, min(int(count), 1<<20))
	for i := 0; i < int(count); i++ {
		var rec record
		if err := binary.Read(br, binary.LittleEndian, &rec); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, fmt.Errorf("failed to read facet %d of %d: %w", i, count, err)
		}
		tris = append(tris, rec.Triangle)
	}
	return tris, nil
}

// ToMesh welds facets into an indexed mesh, merging vertices closer than
// tolerance
func ToMesh(tris []Triangle, tolerance float64) *mesh.Mesh {
	verts := make([]r3.Vec, 0, 3*len(tris))
	faces := make([][3]int, len(tris))
	for i, t := range tris {
		n := len(verts)
		verts = append(verts, toVec(t.Vertex1), toVec(t.Vertex2), toVec(t.Vertex3))
		faces[i] = [3]int{n, n + 1, n + 2}
	}
	return mesh.Weld(verts, faces, tolerance)
}

// Load reads a binary STL file into an indexed mesh
func Load(path string) (*mesh.Mesh, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open STL file: %w", err)
	}
	defer file.Close()

	tris, err := Read(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ToMesh(tris, 0), nil
}
