// Package storybook implements the storybook lifecycle: generation from a
// prompt, CRUD for the owner, the public gallery, and share links.
package storybook
