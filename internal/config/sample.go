package config

import (
	"fmt"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/bloghub/internal/foundation/errors"
)

// Sample is the starter configuration written by "bloghub init".
const Sample = `# bloghub configuration
site:
  title: BlogHub
  description: Posts published from GitHub Issues
  base_url: https://owner.github.io/blog
  author: owner
  posts_per_page: 10
  # templates_dir: site-templates   # post.html, index.html, tag.html, tags.html overrides

github:
  repository: ${GITHUB_REPOSITORY}
  token: ${GITHUB_TOKEN}
  approved_label: APPROVED
  comment_on_publish: false
  discussions:
    enabled: false
    repository_id: ""
    category_id: ""

output:
  dir: docs
  posts_subdir: posts

store:
  path: .bloghub/posts.db

git:
  enabled: false
  branch: main

notify:
  nats_url: ""

daemon:
  sync_interval: 10m
  http_addr: ":8080"

retry:
  mode: exponential
  initial_delay: 1s
  max_delay: 30s
  max_retries: 3
`

// WriteSample writes Sample to path. An existing file is kept unless force is set.
func WriteSample(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.NewError(errors.CategoryAlreadyExists, fmt.Sprintf("%s already exists (use --force to overwrite)", path)).Build()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.FileSystemError("failed to create config directory").WithCause(err).Build()
		}
	}
	if err := os.WriteFile(path, []byte(Sample), 0o600); err != nil {
		return errors.FileSystemError("failed to write config").WithCause(err).WithContext("path", path).Build()
	}
	return nil
}
