// Package discovery finds deployable resource units (ASPs) in a project tree.
//
// A resource unit is recognised by its layout:
//
//	<base>/<project>/ansible-setup-package/resources/project.cfg
//	<base>/<project>/ansible-setup-package/resources/<resource>/Makefile
//
// FindAsps checks the layout; AspFromPath only checks the shape of a base-dir
// relative path. Callers strip the base directory before parsing.
package discovery
