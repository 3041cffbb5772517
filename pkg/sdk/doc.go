// Package docqa embeds the docqa question-answering pipeline in a Go program,
// backed by Redis with the search module.
//
// The client owns one Redis connection and one collection index. Markdown
// documents are chunked by heading and appended to the index; questions are
// answered from the best matching chunks by the configured chat model.
//
//	client, _ := docqa.New(ctx,
//	    docqa.WithRedis("localhost:6379", ""),
//	    docqa.WithEmbedder(embedder, 1024),
//	    docqa.WithCompleter(chat),
//	)
//	defer client.Close()
//
//	_, _ = client.Ingest(ctx, docqa.File{Name: "faq.md", Body: f})
//	ans, _ := client.Ask(ctx, "What is the refund policy?")
package docqa
