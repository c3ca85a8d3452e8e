// Package cache persists player scripts on disk. A script is fetched from
// upstream the first time its URL is requested and served from
// <dir>/<sha256(url)>.js afterwards.
package cache
