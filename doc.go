// Package gfp unpacks the pak archives of a game client in bulk.
//
// The decoder itself lives in the [core] subpackage (package pak). This
// package adds the batch layer on top: expanding glob patterns into pak
// files, opening each one, and unpacking or indexing many archives with a
// bounded pool of workers.
//
// # Quick Start
//
// Unpack every game pak below a directory:
//
//	reports, err := gfp.Unpack(ctx, gfp.PreparePattern("./Paks"), gfp.DialectGame, "./out",
//	    gfp.WithWorkers(4),
//	)
//	if err != nil {
//	    return err
//	}
//	for _, r := range reports {
//	    if r.Err != nil {
//	        log.Printf("%s: %v", r.Pak, r.Err)
//	    }
//	}
//
// Walk archives one at a time:
//
//	paks, err := gfp.OpenGlob("**/*.pak", gfp.DialectAvatar)
//	if err != nil {
//	    return err
//	}
//	for path, a := range paks {
//	    n, _ := a.EntryCount()
//	    fmt.Println(path, n)
//	}
//
// A pak that fails to open, parse or extract is logged and reported; the
// rest of the batch continues.
package gfp
