package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sophialabs/coopwatch/internal/domain/camera"
)

var _ camera.Repository = (*YAMLRepository)(nil)

// CamerasDir is the directory under the root that holds camera definitions.
const CamerasDir = "cameras"

// YAMLRepository loads camera definitions from <root>/cameras/*.yaml.
type YAMLRepository struct {
	rootDir string
}

// NewYAMLRepository creates a repository rooted at rootDir.
func NewYAMLRepository(rootDir string) (*YAMLRepository, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root directory: %w", err)
	}
	return &YAMLRepository{rootDir: absRoot}, nil
}

// Dir returns the absolute cameras directory.
func (r *YAMLRepository) Dir() string {
	return filepath.Join(r.rootDir, CamerasDir)
}

// LoadAll reads every YAML file in the cameras directory, in file name order.
// A missing directory yields no cameras.
func (r *YAMLRepository) LoadAll(_ context.Context) ([]*camera.Camera, error) {
	entries, err := os.ReadDir(r.Dir())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cameras directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && isYAMLFile(e.Name()) && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var cameras []*camera.Camera
	for _, name := range names {
		path := filepath.Join(r.Dir(), name)
		loaded, err := r.loadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		cameras = append(cameras, loaded...)
	}
	return cameras, nil
}

func (r *YAMLRepository) loadFile(path string) ([]*camera.Camera, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		// Empty file.
		return nil, nil
	}

	content := root.Content[0]
	if content.Kind == yaml.SequenceNode {
		cameras := make([]*camera.Camera, 0, len(content.Content))
		for i, item := range content.Content {
			c, err := decodeCameraNode(item)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			c.SourceFile = path
			c.SourceIndex = i
			cameras = append(cameras, c)
		}
		return cameras, nil
	}

	c, err := decodeCameraNode(content)
	if err != nil {
		return nil, err
	}
	c.SourceFile = path
	c.SourceIndex = -1
	return []*camera.Camera{c}, nil
}

// LoadByID loads a single camera by its ID.
func (r *YAMLRepository) LoadByID(ctx context.Context, id string) (*camera.Camera, error) {
	all, err := r.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load cameras: %w", err)
	}
	for _, c := range all {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, fmt.Errorf("camera %q: %w", id, camera.ErrNotFound)
}

// SaveCamera writes camera YAML to disk. Cameras with a SourceFile are
// updated in place; new cameras get <root>/cameras/<id>.yaml.
func (r *YAMLRepository) SaveCamera(_ context.Context, c *camera.Camera, yamlContent []byte) error {
	if _, err := ParseCamera(yamlContent); err != nil {
		return err
	}

	if c.SourceFile == "" {
		if err := os.MkdirAll(r.Dir(), 0o755); err != nil {
			return fmt.Errorf("failed to create cameras directory: %w", err)
		}
		target := filepath.Join(r.Dir(), c.ID+".yaml")
		if err := r.validatePathWithinRoot(target); err != nil {
			return err
		}
		return atomicWriteFile(target, yamlContent)
	}

	if err := r.validatePathWithinRoot(c.SourceFile); err != nil {
		return err
	}
	if c.SourceIndex < 0 {
		return atomicWriteFile(c.SourceFile, yamlContent)
	}
	return editSequence(c.SourceFile, c.SourceIndex, func(seq *yaml.Node) error {
		var replacement yaml.Node
		if err := yaml.Unmarshal(yamlContent, &replacement); err != nil {
			return fmt.Errorf("failed to parse replacement YAML: %w", err)
		}
		seq.Content[c.SourceIndex] = replacement.Content[0]
		return nil
	})
}

// DeleteCamera removes a camera from its source file, deleting the file when
// nothing is left in it.
func (r *YAMLRepository) DeleteCamera(_ context.Context, sourceFile string, sourceIndex int) error {
	if err := r.validatePathWithinRoot(sourceFile); err != nil {
		return err
	}
	if sourceIndex < 0 {
		if err := os.Remove(sourceFile); err != nil {
			return fmt.Errorf("failed to delete camera file: %w", err)
		}
		return nil
	}
	return editSequence(sourceFile, sourceIndex, func(seq *yaml.Node) error {
		seq.Content = append(seq.Content[:sourceIndex], seq.Content[sourceIndex+1:]...)
		return nil
	})
}

// ReadSourceYAML returns the raw YAML of one camera.
func (r *YAMLRepository) ReadSourceYAML(_ context.Context, c *camera.Camera) ([]byte, error) {
	if c.SourceFile == "" {
		return nil, fmt.Errorf("camera %q has no source file", c.ID)
	}
	data, err := os.ReadFile(c.SourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read source file: %w", err)
	}
	if c.SourceIndex < 0 {
		return data, nil
	}

	seq, _, err := parseSequence(data, c.SourceIndex)
	if err != nil {
		return nil, err
	}
	out, err := yaml.Marshal(seq.Content[c.SourceIndex])
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entry: %w", err)
	}
	return out, nil
}

// ParseCamera implements camera.Repository.
func (r *YAMLRepository) ParseCamera(data []byte) (*camera.Camera, error) {
	return ParseCamera(data)
}

// ParseCamera decodes a single camera mapping.
func ParseCamera(data []byte) (*camera.Camera, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", camera.ErrInvalid, err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: expected a single camera mapping", camera.ErrInvalid)
	}
	c, err := decodeCameraNode(root.Content[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", camera.ErrInvalid, err)
	}
	return c, nil
}

// validatePathWithinRoot ensures a path resolves within the root directory.
func (r *YAMLRepository) validatePathWithinRoot(path string) error {
	dir, err := filepath.EvalSymlinks(filepath.Dir(path))
	if err != nil {
		dir, err = filepath.Abs(filepath.Dir(path))
		if err != nil {
			return fmt.Errorf("failed to resolve path: %w", err)
		}
	}
	root, err := filepath.EvalSymlinks(r.rootDir)
	if err != nil {
		root = r.rootDir
	}
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path traversal denied: %s is outside root %s", path, r.rootDir)
	}
	return nil
}

// atomicWriteFile writes content to a temp file then renames it over target.
func atomicWriteFile(target string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".coopwatch-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func parseSequence(data []byte, index int) (*yaml.Node, *yaml.Node, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, nil, fmt.Errorf("unexpected YAML structure")
	}
	seq := root.Content[0]
	if seq.Kind != yaml.SequenceNode {
		return nil, nil, fmt.Errorf("file is not a YAML sequence")
	}
	if index < 0 || index >= len(seq.Content) {
		return nil, nil, fmt.Errorf("index %d out of range (file has %d entries)", index, len(seq.Content))
	}
	return seq, &root, nil
}

// editSequence applies edit to the sequence in filePath and writes it back.
// An emptied sequence removes the file.
func editSequence(filePath string, index int, edit func(seq *yaml.Node) error) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	seq, root, err := parseSequence(data, index)
	if err != nil {
		return err
	}
	if err := edit(seq); err != nil {
		return err
	}
	if len(seq.Content) == 0 {
		return os.Remove(filePath)
	}

	out, err := yaml.Marshal(root)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return atomicWriteFile(filePath, out)
}

func decodeCameraNode(node *yaml.Node) (*camera.Camera, error) {
	var yc yamlCamera
	if err := node.Decode(&yc); err != nil {
		return nil, fmt.Errorf("failed to decode camera: %w", err)
	}
	return toCamera(&yc), nil
}

func toCamera(yc *yamlCamera) *camera.Camera {
	c := &camera.Camera{
		ID:   yc.ID,
		Name: yc.Name,
		Source: camera.Source{
			Kind:    yc.Source.Kind,
			URL:     yc.Source.URL,
			Dir:     yc.Source.Dir,
			Path:    yc.Source.Path,
			XPath:   yc.Source.XPath,
			Width:   yc.Source.Width,
			Height:  yc.Source.Height,
			Quality: yc.Source.Quality,
			Timeout: yc.Source.Timeout,
		},
		TickInterval:  yc.TickInterval,
		FrameInterval: yc.FrameInterval,
		BufferBytes:   yc.BufferBytes,
		SampleWhen:    yc.SampleWhen,
	}
	if yc.Caption != nil {
		c.Caption = &camera.Caption{Engine: yc.Caption.Engine, Template: yc.Caption.Template}
	}
	if yc.RateLimit != nil {
		c.RateLimit = &camera.RateLimit{Rate: yc.RateLimit.Rate, Burst: yc.RateLimit.Burst}
	}
	return c
}
