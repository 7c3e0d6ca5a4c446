// Package logo stores the image shown on the transmission display.
//
// A Store turns an uploaded image into the reference kept in
// ticket.Config.LogoURL. Three backends are provided:
//
//   - DataURLStore encodes the image inline as a data: URL. This is the
//     default and needs nothing but the configuration store.
//   - DiskStore writes the file next to the panel and returns a path served
//     by the panel server.
//   - S3Store uploads to a bucket and returns a public or presigned URL.
//
// The content type is detected from the bytes with http.DetectContentType;
// client-provided part headers are not trusted.
//
// # Usage
//
//	ref, err := logo.Receive(w, r, store, 2<<20)
//	if err != nil {
//	    return err
//	}
//	cfg := operator.Config().WithLogo(ref)
//	operator.MutateConfig(r.Context(), cfg)
package logo
