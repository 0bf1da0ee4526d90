package sandbox

import "strings"

// denylist holds substrings that reject a function before it runs. They
// cover process exit, filesystem, OS and network access, dynamic
// evaluation and destructive file operations.
var denylist = []string{
	"exit",
	"quit",
	"os.",
	"sys.",
	"subprocess",
	"socket",
	"urllib",
	"urlopen",
	"http.client",
	"httpx",
	"aiohttp",
	"requests",
	"ftplib",
	"smtplib",
	"eval(",
	"exec(",
	"open(",
	"__import__",
	"import os",
	"import sys",
	"import subprocess",
	"shutil",
	"pathlib",
	"remove",
	"rmdir",
	"unlink",
	"delete",
}

// Denylisted reports the first denylist pattern found in code.
func Denylisted(code string) (pattern string, found bool) {
	for _, p := range denylist {
		if strings.Contains(code, p) {
			return p, true
		}
	}
	return "", false
}
