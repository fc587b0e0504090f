// Package version reports the build of a mediaflow binary, from -ldflags
// when set and from the embedded VCS build info otherwise.
package version
