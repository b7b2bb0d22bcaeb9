package request

type SubmitPost struct {
	PostURL     string `json:"post_url"`
	PublicOptIn bool   `json:"public_opt_in"`
}
