// Package sitetrans serves website translation requests from per-site caches.
//
// Every source text is keyed by a fingerprint of its trimmed, lowercased
// form. Cache misses are sent to a translation model that is loaded on demand
// and unloaded as soon as the request no longer needs it. A miss is
// translated into every supported language at once, so a later request for
// another language is answered from the cache.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/ZaguanLabs/sitetrans"
//	    "github.com/ZaguanLabs/sitetrans/cache"
//	    "github.com/ZaguanLabs/sitetrans/provider"
//	)
//
//	func main() {
//	    model := provider.NewOpenAIModel(provider.OpenAIConfig{
//	        BaseURL: "http://127.0.0.1:8845/v1",
//	        Model:   "nllb-200-distilled-600M",
//	    })
//
//	    c := sitetrans.NewCoordinator(cache.NewFileStore("data"), model)
//
//	    res, err := c.Translate(context.Background(), sitetrans.TranslateRequest{
//	        Texts:      []string{"Hello World"},
//	        TargetLang: "hi",
//	        SiteID:     "example.com",
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(res.Translations[0])
//	}
package sitetrans
