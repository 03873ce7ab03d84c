// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package version holds build information, set at link time with:
//
//	go build -ldflags "-X github.com/sandia-minimega/minigrid/internal/version.Revision=$(git rev-parse HEAD)"
package version

var (
	Revision = "unknown"
	Date     = "unknown"
)

const Copyright = `Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
rights in this software.`
