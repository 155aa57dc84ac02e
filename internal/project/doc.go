// Package project owns the project-level files of a dashboard checkout:
// the rqdash.jsonc configuration, the generated Dockerfile and
// .dockerignore, and the exported docker-compose.yml.
//
// Configuration is JSONC (parsed via tidwall/jsonc + encoding/json) with
// every field optional; defaults reproduce the stock
// related-queries-dashboard setup (image name, port 8501, data directory
// mounted at /app/data, python:3.9-slim base). Validation covers image
// references (distribution/reference), port ranges, and path sanity.
//
// Generation is template-based for the free-text files (Dockerfile,
// .dockerignore, starter config) and struct-marshalled YAML (yaml.v3)
// for docker-compose.yml.
package project
