// Copyright 2017 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package config loads JSON configuration files.
// Lines starting with # are comments. Unknown fields are errors.
// Files with .yaml/.yml extension are converted to JSON first.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/bugreducer/bugreducer/pkg/osutil"
	"gopkg.in/yaml.v3"
)

var commentRe = regexp.MustCompile(`(^|\n)\s*#[^\n]*`)

func LoadFile(filename string, cfg interface{}) error {
	return LoadFiles([]string{filename}, cfg)
}

// LoadFiles merges all files in order (later files override earlier ones) and decodes the result into cfg.
func LoadFiles(filenames []string, cfg interface{}) error {
	if len(filenames) == 0 {
		return fmt.Errorf("no config file specified")
	}
	var merged []byte
	for _, filename := range filenames {
		if filename == "" {
			return fmt.Errorf("no config file specified")
		}
		data, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		if ext := filepath.Ext(filename); ext == ".yaml" || ext == ".yml" {
			if data, err = YAMLToJSON(data); err != nil {
				return fmt.Errorf("failed to parse %v: %w", filename, err)
			}
		}
		if merged == nil {
			merged = stripComments(data)
			continue
		}
		merged, err = MergeJSONData(merged, stripComments(data))
		if err != nil {
			return fmt.Errorf("failed to merge %v: %w", filename, err)
		}
	}
	return LoadData(merged, cfg)
}

func LoadData(data []byte, cfg interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(stripComments(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func SaveFile(filename string, cfg interface{}) error {
	data, err := json.MarshalIndent(cfg, "", "\t")
	if err != nil {
		return err
	}
	return osutil.WriteFile(filename, data)
}

// MergeJSONData overrides fields of left with the fields present in right.
// Nested objects are merged recursively, everything else is replaced.
func MergeJSONData(left, right []byte) ([]byte, error) {
	if len(bytes.TrimSpace(right)) == 0 {
		return left, nil
	}
	var lmap, rmap map[string]interface{}
	if err := json.Unmarshal(left, &lmap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal left: %w", err)
	}
	if err := json.Unmarshal(right, &rmap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal right: %w", err)
	}
	return json.Marshal(mergeMaps(lmap, rmap))
}

func mergeMaps(left, right map[string]interface{}) map[string]interface{} {
	if left == nil {
		left = make(map[string]interface{})
	}
	for key, rval := range right {
		lsub, lok := left[key].(map[string]interface{})
		rsub, rok := rval.(map[string]interface{})
		if lok && rok {
			left[key] = mergeMaps(lsub, rsub)
			continue
		}
		left[key] = rval
	}
	return left
}

func stripComments(data []byte) []byte {
	return commentRe.ReplaceAll(data, nil)
}

// YAMLToJSON converts a YAML document to JSON, so that it can be merged and decoded with the JSON rules.
func YAMLToJSON(data []byte) ([]byte, error) {
	var obj interface{}
	if err := yaml.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(obj)
}
