package storetest

import "github.com/skyposts/skyposts/store"

// Table definitions mirroring the production schemas.

func UsersTable(name string) Table {
	return Table{
		Name: name,
		Key:  "userId",
		Indexes: map[string]string{
			store.EmailIndex: "email",
		},
	}
}

func PostsTable(name string) Table {
	return Table{
		Name: name,
		Key:  "postId",
		Indexes: map[string]string{
			store.AuthorPostsIndex: "userId",
		},
	}
}

func CommentsTable(name string) Table {
	return Table{
		Name: name,
		Key:  "commentId",
		Indexes: map[string]string{
			store.PostCommentsIndex: "postId",
			store.UserCommentsIndex: "userId",
		},
	}
}
